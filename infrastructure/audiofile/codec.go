package audiofile

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"deepfilter-media/domain/media"
)

// Transcoder converts containers without a native Go codec.
// infrastructure/ffmpeg provides the production implementation.
type Transcoder interface {
	Decode(ctx context.Context, path string) (media.AudioBuffer, error)
	Encode(ctx context.Context, buf media.AudioBuffer, outputPath string) error
}

// Codec implements media.AudioLoader and media.AudioWriter.
// WAV, MP3 and FLAC decode natively and WAV encodes natively; every other
// supported container goes through the Transcoder.
type Codec struct {
	transcoder Transcoder
}

// CodecOption is a functional option for configuring Codec
type CodecOption func(*Codec)

// WithTranscoder sets the fallback transcoder
func WithTranscoder(t Transcoder) CodecOption {
	return func(c *Codec) {
		c.transcoder = t
	}
}

// NewCodec creates a codec; without a transcoder only native formats work
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NativeDecode reports whether path decodes without an external tool
func NativeDecode(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3", ".flac":
		return true
	}
	return false
}

// NativeEncode reports whether path encodes without an external tool
func NativeEncode(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".wav"
}

// Load implements media.AudioLoader
func (c *Codec) Load(ctx context.Context, path string) (media.AudioBuffer, error) {
	var (
		buf media.AudioBuffer
		err error
	)

	if !NativeDecode(path) {
		if c.transcoder == nil {
			return media.AudioBuffer{}, &media.Error{
				Kind:   media.ErrExtractionFailure,
				Path:   path,
				Detail: "no decoder available for " + filepath.Ext(path),
			}
		}
		// Transcoder errors are already classified
		return c.decodeWithTranscoder(ctx, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		buf, err = ReadWAV(path)
	case ".mp3":
		buf, err = ReadMP3(path)
	case ".flac":
		buf, err = ReadFLAC(path)
	}

	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return media.AudioBuffer{}, &media.Error{Kind: media.ErrFilesystem, Path: path, Detail: "cannot read input", Err: err}
		}
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrExtractionFailure, Path: path, Detail: "failed to decode audio", Err: err}
	}
	if buf.Empty() {
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrExtractionFailure, Path: path, Detail: "decoded audio is empty"}
	}
	return buf, nil
}

func (c *Codec) decodeWithTranscoder(ctx context.Context, path string) (media.AudioBuffer, error) {
	buf, err := c.transcoder.Decode(ctx, path)
	if err != nil {
		return media.AudioBuffer{}, err
	}
	if buf.Empty() {
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrExtractionFailure, Path: path, Detail: "decoded audio is empty"}
	}
	return buf, nil
}

// Write implements media.AudioWriter
func (c *Codec) Write(ctx context.Context, path string, buf media.AudioBuffer) error {
	if NativeEncode(path) {
		if err := WriteWAV(path, buf); err != nil {
			return &media.Error{Kind: media.ErrFilesystem, Path: path, Detail: "failed to write output", Err: err}
		}
		return nil
	}

	if c.transcoder == nil {
		return &media.Error{
			Kind:   media.ErrFilesystem,
			Path:   path,
			Detail: "no encoder available for " + filepath.Ext(path),
		}
	}
	return c.transcoder.Encode(ctx, buf, path)
}

// Ensure Codec implements the audio ports
var (
	_ media.AudioLoader = (*Codec)(nil)
	_ media.AudioWriter = (*Codec)(nil)
)
