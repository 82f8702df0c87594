package media

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  &Error{Kind: ErrModelLoadFailure},
			want: "ModelLoadFailure",
		},
		{
			name: "kind with path and detail",
			err:  &Error{Kind: ErrExtractionFailure, Path: "clip.mkv", Detail: "no audio stream"},
			want: "ExtractionFailure (clip.mkv): no audio stream",
		},
		{
			name: "wrapped cause",
			err:  &Error{Kind: ErrMuxingFailure, Detail: "ffmpeg exited", Err: errors.New("exit status 1")},
			want: "MuxingFailure: ffmpeg exited: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ErrUnknown},
		{"plain error", cause, ErrUnknown},
		{"typed", NewError(ErrInferenceFailure, cause, "out of memory"), ErrInferenceFailure},
		{"wrapped typed", fmt.Errorf("step failed: %w", NewError(ErrMissingExternalTool, nil, "ffmpeg")), ErrMissingExternalTool},
		{"path error", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, ErrFilesystem},
		{"typed wins over path error", NewError(ErrExtractionFailure, &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, "decode"), ErrExtractionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("load: %w", NewError(ErrModelLoadFailure, cause, "download %s", "model.tar.gz"))

	if !errors.Is(err, &Error{Kind: ErrModelLoadFailure}) {
		t.Error("errors.Is() should match by kind")
	}
	if errors.Is(err, &Error{Kind: ErrInferenceFailure}) {
		t.Error("errors.Is() matched the wrong kind")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should reach the wrapped cause")
	}
	if got := KindOf(err); got != ErrModelLoadFailure {
		t.Errorf("KindOf() = %v, want %v", got, ErrModelLoadFailure)
	}
	if !strings.Contains(err.Error(), "download model.tar.gz") {
		t.Errorf("Error() = %q, want formatted detail", err.Error())
	}
}
