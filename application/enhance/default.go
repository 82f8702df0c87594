package enhance

import (
	"context"
	"io"
	"sync"

	"deepfilter-media/infrastructure/audiofile"
	"deepfilter-media/infrastructure/config"
	"deepfilter-media/infrastructure/deepfilter"
	"deepfilter-media/infrastructure/ffmpeg"
	"deepfilter-media/infrastructure/filesystem"
)

// Components are the production adapters behind a Service
type Components struct {
	Enhancer   *deepfilter.Service
	Extractor  *ffmpeg.Extractor
	Muxer      *ffmpeg.Muxer
	Transcoder *ffmpeg.Transcoder
	Codec      *audiofile.Codec
}

// NewComponents builds the ffmpeg, deep-filter and codec adapters from cfg
func NewComponents(cfg *config.Config, out io.Writer) *Components {
	toolOpts := []ffmpeg.Option{
		ffmpeg.WithFFmpegPath(cfg.Tools.FFmpegPath),
		ffmpeg.WithWorkDir(cfg.Paths.WorkDirectory),
	}
	transcoder := ffmpeg.NewTranscoder(toolOpts...)

	return &Components{
		Enhancer: deepfilter.NewService(
			deepfilter.WithBinary(cfg.Tools.DeepFilterPath),
			deepfilter.WithModelPath(cfg.Model.Path),
			deepfilter.WithModelURL(cfg.Model.URL),
			deepfilter.WithCacheDir(cfg.Model.CacheDirectory),
			deepfilter.WithPostFilter(cfg.Model.PostFilter),
			deepfilter.WithAttenuationLimit(cfg.Model.AttenuationLimitDB),
			deepfilter.WithWorkDir(cfg.Paths.WorkDirectory),
			deepfilter.WithOutput(out),
		),
		Extractor: ffmpeg.NewExtractor(toolOpts...),
		Muxer: ffmpeg.NewMuxer(toolOpts,
			ffmpeg.WithAudioCodec(cfg.Audio.VideoAudioCodec),
			ffmpeg.WithAudioBitrate(cfg.Audio.VideoAudioBitrate),
		),
		Transcoder: transcoder,
		Codec:      audiofile.NewCodec(audiofile.WithTranscoder(transcoder)),
	}
}

// NewDefault creates a Service backed by ffmpeg, deep-filter and the native
// audio codecs, configured from cfg
func NewDefault(cfg *config.Config, out io.Writer, opts ...Option) *Service {
	c := NewComponents(cfg, out)
	base := []Option{
		WithOutputDirectory(cfg.Paths.OutputDirectory),
		WithOutputSampleRate(cfg.Audio.OutputSampleRate),
		WithOutput(out),
	}
	return NewService(c.Enhancer, c.Extractor, c.Muxer, c.Codec, c.Codec, filesystem.NewChecker(), append(base, opts...)...)
}

var (
	defaultOnce    sync.Once
	defaultService *Service
)

// ProcessFile enhances one file with the built-in configuration. The model
// is loaded on first use and shared by every later call in the process.
func ProcessFile(ctx context.Context, inputPath, outputPath string) (string, error) {
	defaultOnce.Do(func() {
		defaultService = NewDefault(config.Default(), io.Discard)
	})
	return defaultService.ProcessFile(ctx, inputPath, outputPath)
}
