package detect

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"time"
)

// Probe is the outcome of asking whether a remote file exists.
type Probe int

const (
	// Missing means the host answered and the file is not there.
	Missing Probe = iota
	// Found means the host served the file.
	Found
	// Untrusted means the host was reached but its certificate failed
	// verification. The file most likely exists.
	Untrusted
	// Unreachable means the host could not be contacted.
	Unreachable
)

func (p Probe) String() string {
	switch p {
	case Found:
		return "found"
	case Untrusted:
		return "untrusted"
	case Unreachable:
		return "unreachable"
	default:
		return "missing"
	}
}

// Oracle answers whether a URL exists. Implementations must return within a
// bounded time and never panic when offline.
type Oracle interface {
	Probe(ctx context.Context, url string) Probe
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, url string) Probe

// Probe calls f.
func (f OracleFunc) Probe(ctx context.Context, url string) Probe { return f(ctx, url) }

// DefaultTimeout bounds each HTTP probe.
const DefaultTimeout = 5 * time.Second

// HTTPOracle probes URLs with HEAD requests.
type HTTPOracle struct {
	client *http.Client
}

// NewHTTPOracle returns an HTTPOracle whose requests give up after timeout.
// A non-positive timeout selects DefaultTimeout.
//
// Postcondition: Returns a non-nil HTTPOracle.
func NewHTTPOracle(timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPOracle{client: &http.Client{Timeout: timeout}}
}

// Probe issues a HEAD request for url.
//
// Postcondition: 2xx and 3xx statuses are Found, other statuses Missing,
// certificate failures Untrusted, and every other error Unreachable.
func (o *HTTPOracle) Probe(ctx context.Context, url string) Probe {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Unreachable
	}
	res, err := o.client.Do(req)
	if err != nil {
		if certificateError(err) {
			return Untrusted
		}
		return Unreachable
	}
	defer res.Body.Close()
	if res.StatusCode >= 200 && res.StatusCode < 400 {
		return Found
	}
	return Missing
}

func certificateError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		invalid          x509.CertificateInvalidError
		hostname         x509.HostnameError
		verification     *tls.CertificateVerificationError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &invalid) ||
		errors.As(err, &hostname) ||
		errors.As(err, &verification)
}
