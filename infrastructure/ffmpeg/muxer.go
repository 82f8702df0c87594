package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"deepfilter-media/domain/media"
	"deepfilter-media/infrastructure/audiofile"
)

// Defaults for the re-encoded audio track of a remuxed video
const (
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "320k"
)

// containerAudioCodecs overrides the audio codec for containers that do not
// accept the default one
var containerAudioCodecs = map[string]string{
	".webm": "libopus",
	".wmv":  "wmav2",
}

// Muxer implements media.Muxer using ffmpeg
type Muxer struct {
	tool
	audioCodec   string
	audioBitrate string
}

// MuxerOption configures the audio encoding of a Muxer
type MuxerOption func(*Muxer)

// WithAudioCodec sets the codec for the replaced audio track
func WithAudioCodec(codec string) MuxerOption {
	return func(m *Muxer) {
		if codec != "" {
			m.audioCodec = codec
		}
	}
}

// WithAudioBitrate sets the bitrate for the replaced audio track
func WithAudioBitrate(bitrate string) MuxerOption {
	return func(m *Muxer) {
		if bitrate != "" {
			m.audioBitrate = bitrate
		}
	}
}

// NewMuxer creates a new FFmpeg-based muxer
func NewMuxer(opts []Option, muxOpts ...MuxerOption) *Muxer {
	m := &Muxer{
		tool:         newTool(opts),
		audioCodec:   DefaultAudioCodec,
		audioBitrate: DefaultAudioBitrate,
	}
	for _, opt := range muxOpts {
		opt(m)
	}
	return m
}

// AudioCodecFor returns the audio codec used when muxing into outputPath
func (m *Muxer) AudioCodecFor(outputPath string) string {
	if codec, ok := containerAudioCodecs[strings.ToLower(filepath.Ext(outputPath))]; ok {
		return codec
	}
	return m.audioCodec
}

// RemuxArgs returns the ffmpeg arguments that copy the first video stream
// of videoPath unchanged and take audio from audioPath
func (m *Muxer) RemuxArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy", // never re-encode video
		"-c:a", m.AudioCodecFor(outputPath),
		"-b:a", m.audioBitrate,
		"-shortest",
		"-avoid_negative_ts", "make_zero",
		"-y",
		outputPath,
	}
}

// Remux implements media.Muxer
func (m *Muxer) Remux(ctx context.Context, videoPath string, audio media.AudioBuffer, outputPath string) error {
	work, err := m.newWorkDir(videoPath)
	if err != nil {
		return err
	}
	defer work.Close()

	audioPath := work.File(".wav")
	if err := audiofile.WriteWAV(audioPath, audio); err != nil {
		return scratchWriteError(videoPath, err)
	}

	if err := m.run(ctx, m.RemuxArgs(videoPath, audioPath, outputPath)...); err != nil {
		// Do not leave a half-written container behind
		os.Remove(outputPath)

		detail := "ffmpeg remux failed"
		if MatchStreamCopyIssue(stderrOf(err)) {
			detail = "video stream cannot be stream-copied into " + filepath.Ext(outputPath) + " container"
		}
		return commandFailure(m.ffmpegPath, media.ErrMuxingFailure, videoPath, detail, err)
	}
	return nil
}

// Ensure Muxer implements media.Muxer
var _ media.Muxer = (*Muxer)(nil)
