package ffmpeg

import (
	"context"
	"strconv"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/audiofile"
)

// Extractor implements media.AudioExtractor using ffmpeg
type Extractor struct {
	tool
}

// NewExtractor creates a new FFmpeg-based audio extractor
func NewExtractor(opts ...Option) *Extractor {
	return &Extractor{tool: newTool(opts)}
}

// ExtractArgs returns the ffmpeg arguments that decode the first audio
// stream of videoPath into a 16-bit PCM WAV at the model rate
func ExtractArgs(videoPath, wavPath string) []string {
	return []string{
		"-i", videoPath,
		"-map", "0:a:0", // first audio stream only; fails if there is none
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(media.ExtractSampleRate),
		"-ac", strconv.Itoa(media.ExtractChannels),
		"-y",
		wavPath,
	}
}

// Extract implements media.AudioExtractor
func (e *Extractor) Extract(ctx context.Context, videoPath string) (media.AudioBuffer, error) {
	work, err := e.newWorkDir(videoPath)
	if err != nil {
		return media.AudioBuffer{}, err
	}
	defer work.Close()

	wavPath := work.File(".wav")
	if err := e.run(ctx, ExtractArgs(videoPath, wavPath)...); err != nil {
		stderr := stderrOf(err)
		detail := "ffmpeg audio extraction failed"
		switch {
		case MatchNoAudioStream(stderr):
			detail = "no audio stream in input"
		case MatchInputUnreadable(stderr):
			detail = "cannot read input container"
		}
		return media.AudioBuffer{}, commandFailure(e.ffmpegPath, media.ErrExtractionFailure, videoPath, detail, err)
	}

	buf, err := audiofile.ReadWAV(wavPath)
	if err != nil {
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrExtractionFailure, Path: videoPath, Detail: "cannot decode extracted audio", Err: err}
	}
	if buf.Empty() {
		return media.AudioBuffer{}, &media.Error{Kind: media.ErrExtractionFailure, Path: videoPath, Detail: "extracted audio is empty"}
	}
	return buf, nil
}

// Ensure Extractor implements media.AudioExtractor
var _ media.AudioExtractor = (*Extractor)(nil)
