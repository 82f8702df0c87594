package media

import (
	"fmt"
	"math"
)

// resampleZeroCrossings is the half-width of the sinc kernel measured in
// zero crossings of the (possibly lowered) cutoff
const resampleZeroCrossings = 16

// ResampledFrames returns the frame count after converting frames from
// sourceRate to targetRate. Fractional counts round to the nearest integer,
// halves away from zero.
func ResampledFrames(frames, sourceRate, targetRate int) int {
	if sourceRate == targetRate {
		return frames
	}
	return int(math.Round(float64(frames) * float64(targetRate) / float64(sourceRate)))
}

// Resample converts buf to targetRate. A buffer already at targetRate is
// returned unchanged. Channel count is preserved and duration is kept within
// one output frame (see ResampledFrames).
//
// Interpolation is a Hann-windowed sinc; when downsampling the cutoff drops to
// the target Nyquist frequency, so content above it is removed.
func Resample(buf AudioBuffer, targetRate int) (AudioBuffer, error) {
	if targetRate <= 0 {
		return AudioBuffer{}, fmt.Errorf("invalid target sample rate %d", targetRate)
	}
	if err := buf.Validate(); err != nil {
		return AudioBuffer{}, fmt.Errorf("cannot resample: %w", err)
	}
	if buf.SampleRate == targetRate {
		return buf, nil
	}

	channels := buf.Channels
	inFrames := buf.Frames()
	outFrames := ResampledFrames(inFrames, buf.SampleRate, targetRate)
	out := make([]float32, outFrames*channels)
	if inFrames == 0 || outFrames == 0 {
		return AudioBuffer{Samples: out, SampleRate: targetRate, Channels: channels}, nil
	}

	ratio := float64(targetRate) / float64(buf.SampleRate)
	cutoff := math.Min(1.0, ratio) // relative to source Nyquist
	halfWidth := float64(resampleZeroCrossings) / cutoff
	step := 1.0 / ratio

	weights := make([]float64, 0, int(2*halfWidth)+2)
	for i := 0; i < outFrames; i++ {
		center := float64(i) * step
		lo := int(math.Ceil(center - halfWidth))
		hi := int(math.Floor(center + halfWidth))
		if lo < 0 {
			lo = 0
		}
		if hi > inFrames-1 {
			hi = inFrames - 1
		}

		// Taps depend only on the offset from center, so they are shared by
		// every channel of this frame
		weights = weights[:0]
		var norm float64
		for j := lo; j <= hi; j++ {
			w := kernel(float64(j)-center, cutoff, halfWidth)
			weights = append(weights, w)
			norm += w
		}

		for ch := 0; ch < channels; ch++ {
			var acc float64
			for k, w := range weights {
				acc += w * float64(buf.Samples[(lo+k)*channels+ch])
			}
			if norm != 0 {
				acc /= norm
			}
			out[i*channels+ch] = clamp(acc)
		}
	}

	return AudioBuffer{Samples: out, SampleRate: targetRate, Channels: channels}, nil
}

func kernel(x, cutoff, halfWidth float64) float64 {
	if math.Abs(x) >= halfWidth {
		return 0
	}
	window := 0.5 + 0.5*math.Cos(math.Pi*x/halfWidth)
	return cutoff * sinc(cutoff*x) * window
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

func clamp(v float64) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return float32(v)
	}
}
