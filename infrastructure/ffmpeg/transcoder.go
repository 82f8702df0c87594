package ffmpeg

import (
	"context"
	"os"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/audiofile"
)

// Transcoder implements audiofile.Transcoder for containers without a
// native Go codec (ogg, m4a, aac, wma on input; everything but wav on output)
type Transcoder struct {
	tool
}

// NewTranscoder creates a new FFmpeg-based transcoder
func NewTranscoder(opts ...Option) *Transcoder {
	return &Transcoder{tool: newTool(opts)}
}

// Decode converts path to WAV keeping its native rate and channel layout
func (t *Transcoder) Decode(ctx context.Context, path string) (media.AudioBuffer, error) {
	work, err := t.newWorkDir(path)
	if err != nil {
		return media.AudioBuffer{}, err
	}
	defer work.Close()

	wavPath := work.File(".wav")
	args := []string{
		"-i", path,
		"-vn",
		"-acodec", "pcm_s16le",
		"-y",
		wavPath,
	}
	if err := t.run(ctx, args...); err != nil {
		detail := "ffmpeg audio decode failed"
		if MatchInputUnreadable(stderrOf(err)) {
			detail = "cannot read input container"
		}
		return media.AudioBuffer{}, commandFailure(t.ffmpegPath, media.ErrExtractionFailure, path, detail, err)
	}

	buf, err := audiofile.ReadWAV(wavPath)
	if err != nil {
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrExtractionFailure, Path: path, Detail: "cannot decode transcoded audio", Err: err}
	}
	return buf, nil
}

// Encode writes buf into outputPath; ffmpeg picks the codec from the extension
func (t *Transcoder) Encode(ctx context.Context, buf media.AudioBuffer, outputPath string) error {
	work, err := t.newWorkDir(outputPath)
	if err != nil {
		return err
	}
	defer work.Close()

	wavPath := work.File(".wav")
	if err := audiofile.WriteWAV(wavPath, buf); err != nil {
		return scratchWriteError(outputPath, err)
	}

	args := []string{
		"-i", wavPath,
		"-vn",
		"-y",
		outputPath,
	}
	if err := t.run(ctx, args...); err != nil {
		os.Remove(outputPath)
		return commandFailure(t.ffmpegPath, media.ErrMuxingFailure, outputPath, "ffmpeg audio encode failed", err)
	}
	return nil
}

// Ensure Transcoder implements audiofile.Transcoder
var _ audiofile.Transcoder = (*Transcoder)(nil)
