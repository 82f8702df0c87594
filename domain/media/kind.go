package media

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies how an input file is routed through the pipeline
type Kind int

const (
	KindUnsupported Kind = iota
	KindAudio
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".wmv":  true,
	".m4v":  true,
}

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".wma":  true,
}

// Classify returns the kind of a file by its extension (case-insensitive).
// No I/O is performed.
func Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case videoExtensions[ext]:
		return KindVideo
	case audioExtensions[ext]:
		return KindAudio
	default:
		return KindUnsupported
	}
}

// SupportedExtensions returns the sorted extensions accepted for kind
func SupportedExtensions(kind Kind) []string {
	var set map[string]bool
	switch kind {
	case KindAudio:
		set = audioExtensions
	case KindVideo:
		set = videoExtensions
	default:
		return nil
	}

	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// UnsupportedFormatError builds the error reported for a path whose
// extension is in neither set
func UnsupportedFormatError(path string) *Error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = "(none)"
	}
	return &Error{
		Kind: ErrUnsupportedFormat,
		Path: path,
		Detail: "unsupported file type " + ext +
			"; supported video: " + strings.Join(SupportedExtensions(KindVideo), ", ") +
			"; supported audio: " + strings.Join(SupportedExtensions(KindAudio), ", "),
	}
}
