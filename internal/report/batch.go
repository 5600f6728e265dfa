package report

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileResult is the outcome of converting one file of a batch.
type FileResult struct {
	Source string  `yaml:"source"`
	Report *Report `yaml:"report,omitempty"`
	// Failure is the failure message, empty on success.
	Failure string `yaml:"failure,omitempty"`
}

// Batch aggregates the per-file outcomes of a folder conversion.
type Batch struct {
	RunID     string       `yaml:"run_id"`
	OutputDir string       `yaml:"output_dir"`
	Files     []FileResult `yaml:"files"`
}

// NewBatch returns an empty Batch writing into outputDir.
func NewBatch(outputDir string) *Batch {
	return &Batch{RunID: uuid.NewString(), OutputDir: outputDir}
}

// Succeeded returns the number of files converted without failure.
func (b *Batch) Succeeded() int {
	n := 0
	for _, f := range b.Files {
		if f.Failure == "" {
			n++
		}
	}
	return n
}

// Failed returns the number of files that could not be converted.
func (b *Batch) Failed() int {
	return len(b.Files) - b.Succeeded()
}

// String renders every file's report in order, separated by blank lines, in
// the layout of the batch warnings log.
func (b *Batch) String() string {
	var sb strings.Builder
	for _, f := range b.Files {
		if f.Failure != "" {
			sb.WriteString(f.Failure)
			sb.WriteByte('\n')
		} else if f.Report != nil {
			sb.WriteString(f.Report.String())
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// YAML renders the batch as a YAML document.
func (b *Batch) YAML() ([]byte, error) {
	out, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("report: marshalling batch: %w", err)
	}
	return out, nil
}
