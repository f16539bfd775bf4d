package core

import (
	"errors"
	"fmt"
	"strings"
)

// Status is one user-facing progress event. Key is an i18n message key.
type Status struct {
	Step Step
	Key  string
	Args []any
}

// Reporter receives status events in the order they happen.
type Reporter interface {
	Report(status Status)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Status)

func (f ReporterFunc) Report(s Status) {
	f(s)
}

type discardReporter struct{}

func (discardReporter) Report(Status) {}

// detailed is implemented by errors that carry an opaque message from an external tool.
type detailed interface {
	Detail() string
}

type failure struct {
	kind   error
	detail string
}

func (f *failure) Error() string {
	if f.detail == "" {
		return f.kind.Error()
	}
	return fmt.Sprintf("%v: %s", f.kind, f.detail)
}

func (f *failure) Unwrap() error  { return f.kind }
func (f *failure) Detail() string { return f.detail }

// Fail returns an error of the given kind whose detail is passed through to the user unchanged.
func Fail(kind error, detail string) error {
	return &failure{kind: kind, detail: strings.TrimSpace(detail)}
}

// Detail returns the external tool message attached to err, or err's own text.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var d detailed
	if errors.As(err, &d) && d.Detail() != "" {
		return d.Detail()
	}
	return err.Error()
}

// ErrorStatus converts a pipeline error into the single message shown to the user.
func ErrorStatus(err error) Status {
	var stepErr *StepError
	step := Step("")
	if errors.As(err, &stepErr) {
		step = stepErr.Step
	}

	switch kind := Kind(err); kind {
	case KindNotFound, KindExtractionFailed:
		if step == "" {
			return Status{Key: "error." + kind}
		}
		return Status{Step: step, Key: fmt.Sprintf("error.%s.%s", step, kind)}
	case KindDownloadFailed, KindTranscodeFailed:
		return Status{Step: step, Key: "error." + kind, Args: []any{Detail(err)}}
	case KindBusy, KindInvalidQuery:
		return Status{Step: step, Key: "error." + kind}
	default:
		return Status{Step: step, Key: "error.generic"}
	}
}
