package ffmpeg

import (
	"errors"
	"io/fs"
	"os/exec"
	"regexp"

	"deepfilter-media/domain/media"
)

// Pre-compiled regexes for classifying ffmpeg stderr output
var (
	reNoAudioStream = regexp.MustCompile(
		`Stream map '0:a(:0)?' matches no streams|` +
			`does not contain any stream|` +
			`Output file .* does not contain any stream`)

	reStreamCopyIssue = regexp.MustCompile(
		`(?i)Could not find tag for codec .* in stream|` +
			`codec not currently supported in container|` +
			`Could not write header for output file|` +
			`incorrect codec parameters|` +
			`Only VP8 or VP9 or AV1 video and Vorbis or Opus audio`)

	reInputUnreadable = regexp.MustCompile(
		`(?i)No such file or directory|Invalid data found when processing input|moov atom not found`)
)

// MatchNoAudioStream reports whether stderr says the input has no audio track
func MatchNoAudioStream(stderr string) bool {
	return reNoAudioStream.MatchString(stderr)
}

// MatchStreamCopyIssue reports whether stderr says a stream could not be
// copied into the output container
func MatchStreamCopyIssue(stderr string) bool {
	return reStreamCopyIssue.MatchString(stderr)
}

// MatchInputUnreadable reports whether stderr says the input could not be opened
func MatchInputUnreadable(stderr string) bool {
	return reInputUnreadable.MatchString(stderr)
}

// IsMissingTool reports whether err means the executable could not be found
func IsMissingTool(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	// An explicit path that does not exist fails at fork/exec
	var ce *CommandError
	if errors.As(err, &ce) {
		var ee *exec.ExitError
		if errors.As(ce.Err, &ee) {
			return false
		}
	}
	return errors.Is(err, fs.ErrNotExist)
}

func stderrOf(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Stderr
	}
	return ""
}

// missingTool builds the MissingExternalTool error for the ffmpeg binary
func missingTool(binary, path string, err error) *media.Error {
	return &media.Error{
		Kind:   media.ErrMissingExternalTool,
		Path:   path,
		Detail: binary + " not found or not executable; install ffmpeg and make sure it is on PATH",
		Err:    err,
	}
}

// commandFailure converts a runner error into a typed pipeline error
func commandFailure(binary string, kind media.ErrorKind, path, detail string, err error) *media.Error {
	if IsMissingTool(err) {
		return missingTool(binary, path, err)
	}
	if tail := stderrTail(stderrOf(err), 3); tail != "" {
		detail += ": " + tail
	}
	return &media.Error{Kind: kind, Path: path, Detail: detail, Err: err}
}
