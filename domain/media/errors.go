package media

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind classifies a per-file pipeline failure
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrUnsupportedFormat
	ErrMissingExternalTool
	ErrExtractionFailure
	ErrModelLoadFailure
	ErrInferenceFailure
	ErrMuxingFailure
	ErrFilesystem
	ErrPublishFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedFormat:
		return "UnsupportedFormat"
	case ErrMissingExternalTool:
		return "MissingExternalTool"
	case ErrExtractionFailure:
		return "ExtractionFailure"
	case ErrModelLoadFailure:
		return "ModelLoadFailure"
	case ErrInferenceFailure:
		return "InferenceFailure"
	case ErrMuxingFailure:
		return "MuxingFailure"
	case ErrFilesystem:
		return "FilesystemError"
	case ErrPublishFailure:
		return "PublishFailure"
	default:
		return "Unknown"
	}
}

// Error is the typed failure carried by a failed ProcessingResult
type Error struct {
	Kind   ErrorKind
	Path   string // file the failure relates to, if any
	Detail string // human-readable reason
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Detail == "" && t.Err == nil
}

// NewError wraps err with a kind and a formatted detail
func NewError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

// KindOf reports the ErrorKind of the first *Error in err's chain
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrUnknown
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return ErrFilesystem
	}
	return ErrUnknown
}
