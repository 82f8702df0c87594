package media

import "context"

// Enhancer is the port to the pretrained speech-enhancement model.
// Load is explicit so load failures and reuse are observable.
type Enhancer interface {
	// Load prepares the model; it succeeds at most once per instance
	Load(ctx context.Context) error
	// Ready reports whether Load has succeeded
	Ready() bool
	// NativeRate is the only sample rate Enhance accepts
	NativeRate() int
	// Enhance returns denoised samples at the same rate and channel count
	Enhance(ctx context.Context, buf AudioBuffer) (AudioBuffer, error)
}

// AudioExtractor pulls the audio track out of a video container
type AudioExtractor interface {
	// Extract returns the first audio stream at ExtractSampleRate / ExtractChannels
	Extract(ctx context.Context, videoPath string) (AudioBuffer, error)
}

// Muxer recombines enhanced audio with an untouched video stream
type Muxer interface {
	// Remux stream-copies the video of videoPath and replaces its audio
	Remux(ctx context.Context, videoPath string, audio AudioBuffer, outputPath string) error
}

// AudioLoader decodes an audio file at its native sample rate
type AudioLoader interface {
	Load(ctx context.Context, path string) (AudioBuffer, error)
}

// AudioWriter encodes a buffer into the container implied by path
type AudioWriter interface {
	Write(ctx context.Context, path string, buf AudioBuffer) error
}

// FileChecker checks for file existence
type FileChecker interface {
	Exists(path string) bool
}

// Publisher makes a finished output available elsewhere
type Publisher interface {
	// Publish uploads path and returns a shareable URL
	Publish(ctx context.Context, path string) (string, error)
}
