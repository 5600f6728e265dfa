package converter

import (
	"errors"
	"fmt"
)

// Reason classifies why a file could not be converted.
type Reason int

const (
	OverwriteRefused Reason = iota + 1
	SourceNotFound
	SourceIsDirectory
	SourceNotUtf8
	SourceNotJson
	CorruptFile
	DestinationPermissionDenied
	AlreadyTargetFormat
	SameVersionNoop
	InvalidVersion
	WriteFailed
)

var reasonNames = map[Reason]string{
	OverwriteRefused:            "OverwriteRefused",
	SourceNotFound:              "SourceNotFound",
	SourceIsDirectory:           "SourceIsDirectory",
	SourceNotUtf8:               "SourceNotUtf8",
	SourceNotJson:               "SourceNotJson",
	CorruptFile:                 "CorruptFile",
	DestinationPermissionDenied: "DestinationPermissionDenied",
	AlreadyTargetFormat:         "AlreadyTargetFormat",
	SameVersionNoop:             "SameVersionNoop",
	InvalidVersion:              "InvalidVersion",
	WriteFailed:                 "WriteFailed",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// messages are shown to the user in place of a report.
var messages = map[Reason]string{
	OverwriteRefused:            "For your safety, this program does not allow you to overwrite your existing world files. Please try a different file path.",
	SourceNotFound:              "The selected file does not exist.",
	SourceIsDirectory:           "The selected file is a folder.",
	SourceNotUtf8:               "The selected file is a binary file such as an image, song, or movie, and could not be read.",
	SourceNotJson:               "The selected text file could not be read. Are you sure it’s a world?",
	CorruptFile:                 "The selected world is missing required data and could not be converted.",
	DestinationPermissionDenied: "Your computer blocked World Converter from saving to the selected folder:",
	AlreadyTargetFormat:         "The selected world is already in the target version’s tile format.",
	SameVersionNoop:             "The world is already in the target version. Nothing to convert.",
	InvalidVersion:              "The selected versions cannot be converted between.",
	WriteFailed:                 "The converted world could not be saved.",
}

// Failure is the error returned for every file-level conversion failure.
type Failure struct {
	Reason Reason
	// Path is the file the failure concerns.
	Path string
	Err  error
}

func (f *Failure) Error() string {
	msg := messages[f.Reason]
	if msg == "" {
		msg = f.Reason.String()
	}
	if f.Err != nil {
		return fmt.Sprintf("%s\n%s\n(%v)", msg, f.Path, f.Err)
	}
	return fmt.Sprintf("%s\n%s", msg, f.Path)
}

func (f *Failure) Unwrap() error { return f.Err }

// ReasonOf returns the Reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason, true
	}
	return 0, false
}

func fail(r Reason, path string, err error) *Failure {
	return &Failure{Reason: r, Path: path, Err: err}
}
