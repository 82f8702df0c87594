package media

import (
	"fmt"
	"time"
)

// NativeSampleRate is the rate the enhancement model was trained on and
// requires as input
const NativeSampleRate = 48000

// Video audio tracks are extracted straight to the model rate as stereo
const (
	ExtractSampleRate = NativeSampleRate
	ExtractChannels   = 2
)

// AudioBuffer holds interleaved float samples in [-1, 1].
// A buffer is handed from stage to stage and never shared concurrently.
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// NewAudioBuffer validates the layout and returns a buffer
func NewAudioBuffer(samples []float32, sampleRate, channels int) (AudioBuffer, error) {
	b := AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: channels}
	if err := b.Validate(); err != nil {
		return AudioBuffer{}, err
	}
	return b, nil
}

// Validate checks rate, channel count and that samples form whole frames
func (b AudioBuffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", b.Channels)
	}
	if len(b.Samples)%b.Channels != 0 {
		return fmt.Errorf("%d samples do not divide into %d channels", len(b.Samples), b.Channels)
	}
	return nil
}

// Frames returns the number of sample frames (samples per channel)
func (b AudioBuffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Empty reports whether the buffer holds no frames
func (b AudioBuffer) Empty() bool {
	return b.Frames() == 0
}

// Duration returns the playback length of the buffer
func (b AudioBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// FitFrames returns a copy truncated or zero-padded to exactly frames frames
func (b AudioBuffer) FitFrames(frames int) AudioBuffer {
	if frames == b.Frames() {
		return b
	}
	out := make([]float32, frames*b.Channels)
	copy(out, b.Samples)
	return AudioBuffer{Samples: out, SampleRate: b.SampleRate, Channels: b.Channels}
}
