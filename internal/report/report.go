// Package report accumulates the diagnostics of one world conversion and
// renders them for people and for machines.
package report

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RemovedObject is one object type dropped because the target lacks it.
type RemovedObject struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// Replacement is one tile definition substituted by its fallback.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Report collects the outcome of converting one world. A Report is owned by
// the caller of a single conversion and never shared between files.
type Report struct {
	RunID       string `yaml:"run_id"`
	Source      string `yaml:"source,omitempty"`
	Destination string `yaml:"destination,omitempty"`
	From        string `yaml:"from,omitempty"`
	To          string `yaml:"to,omitempty"`
	// Detected is set when From was inferred rather than given.
	Detected bool            `yaml:"detected,omitempty"`
	Warnings []string        `yaml:"warnings,omitempty"`
	Removed  []RemovedObject `yaml:"removed,omitempty"`
	Replaced []Replacement   `yaml:"replaced,omitempty"`

	removedSeen  map[int]bool
	replacedSeen map[Replacement]bool
}

// New returns an empty Report with a fresh run id.
func New() *Report {
	return &Report{
		RunID:        uuid.NewString(),
		removedSeen:  make(map[int]bool),
		replacedSeen: make(map[Replacement]bool),
	}
}

// Warn appends a formatted warning line.
func (r *Report) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// AddRemoved records that objects of type id were removed.
//
// Postcondition: id appears in Removed exactly once regardless of how many
// times it is added.
func (r *Report) AddRemoved(id int, name string) {
	if r.removedSeen == nil {
		r.removedSeen = make(map[int]bool)
	}
	if r.removedSeen[id] {
		return
	}
	r.removedSeen[id] = true
	r.Removed = append(r.Removed, RemovedObject{ID: id, Name: name})
}

// AddReplaced records that tile definition from was replaced with to.
//
// Postcondition: the pair appears in Replaced exactly once.
// Returns true when the pair was not already present.
func (r *Report) AddReplaced(from, to string) bool {
	p := Replacement{From: from, To: to}
	if r.replacedSeen == nil {
		r.replacedSeen = make(map[Replacement]bool)
	}
	if r.replacedSeen[p] {
		return false
	}
	r.replacedSeen[p] = true
	r.Replaced = append(r.Replaced, p)
	return true
}

// String renders the report as the text shown to the user after a conversion.
func (r *Report) String() string {
	var b strings.Builder
	for _, w := range r.Warnings {
		b.WriteString(w)
		b.WriteByte('\n')
	}
	if r.Destination != "" {
		fmt.Fprintf(&b, "\nYOUR CONVERTED WORLD HAS BEEN SAVED TO:\n%s\n\n", r.Destination)
	}
	if len(r.Removed) > 0 {
		b.WriteString("Removed incompatible objects with the following IDs: ")
		for i, o := range r.Removed {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d (%s)", o.ID, o.Name)
		}
		b.WriteByte('\n')
	}
	for _, p := range r.Replaced {
		fmt.Fprintf(&b, "Incompatible tile definition “%s” replaced with “%s”\n", p.From, p.To)
	}
	return b.String()
}

// YAML renders the report as a YAML document.
func (r *Report) YAML() ([]byte, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("report: marshalling: %w", err)
	}
	return out, nil
}
