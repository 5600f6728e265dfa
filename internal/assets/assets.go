// Package assets resolves sprite sheet and asset paths against the public
// asset host of each world revision.
package assets

import (
	"strings"

	"github.com/ClippyRoyale/WorldConverter/internal/version"
)

// Hosts holds the base URL of each revision's asset host. Each URL ends in a
// slash.
type Hosts struct {
	Deluxe string `mapstructure:"deluxe"`
	Legacy string `mapstructure:"legacy"`
	Remake string `mapstructure:"remake"`
}

// DefaultHosts returns the public asset hosts.
func DefaultHosts() Hosts {
	return Hosts{
		Deluxe: "https://raw.githubusercontent.com/mroyale/assets-dx/main/",
		Legacy: "https://raw.githubusercontent.com/mroyale/assets/legacy/",
		Remake: "https://mroyale.net/",
	}
}

// For returns the host serving v's assets. Classic and Inferno worlds use the
// Legacy host.
func (h Hosts) For(v version.Version) string {
	switch v {
	case version.Deluxe:
		return h.Deluxe
	case version.Remake:
		return h.Remake
	default:
		return h.Legacy
	}
}

// Absolute joins rel onto v's host.
func (h Hosts) Absolute(v version.Version, rel string) string {
	return h.For(v) + rel
}

// IsAbsolute reports whether path already names a full or scheme-relative URL.
func IsAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "//")
}
