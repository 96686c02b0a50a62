// Package failure classifies pipeline failures into a closed set of kinds so
// retry policy can be driven off a tag instead of error strings.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the class of a pipeline failure.
type Kind int

const (
	None Kind = iota
	// Environment means the OCR runtime or one of its libraries is missing.
	Environment
	// Process means the external process ran and exited unsuccessfully.
	Process
	// Parse means the process output could not be decoded.
	Parse
	// API means the extraction API could not be reached or answered non-2xx.
	API
	// EmptyInput means there was nothing to work on. It is not an error for UIs.
	EmptyInput
)

var kindNames = map[Kind]string{
	None:        "none",
	Environment: "environment_error",
	Process:     "process_error",
	Parse:       "parse_error",
	API:         "api_error",
	EmptyInput:  "empty_input",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown failure kind %q", string(text))
}

// Retryable reports whether a failure of this kind earns an automatic
// re-check of the runtime followed by one retry.
func (k Kind) Retryable() bool {
	return k == Environment
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	// Status and Body carry the upstream HTTP response for API failures.
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
// Unclassified non-nil errors are treated as process failures.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Process
}

// environmentPatterns are lower-case fragments that runtimes print when the
// interpreter, the OCR library, or the entry script cannot be found.
var environmentPatterns = []string{
	"module not found",
	"modulenotfounderror",
	"no module named",
	"not installed",
	"command not found",
	"executable file not found",
	"no such file or directory",
	"not found in $path",
	"is not recognized as an internal or external command",
}

// ClassifyMessage maps a runtime diagnostic to Environment or Process.
func ClassifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	for _, pattern := range environmentPatterns {
		if strings.Contains(lower, pattern) {
			return Environment
		}
	}
	return Process
}
