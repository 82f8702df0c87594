package audiofile

import (
	"errors"
	"fmt"
	"io"

	"deepfilter-media/domain/media"

	"github.com/mewkiz/flac"
)

// ReadFLAC decodes a FLAC file into an interleaved float buffer
func ReadFLAC(path string) (media.AudioBuffer, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return media.AudioBuffer{}, fmt.Errorf("failed to open flac stream: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	rate := int(stream.Info.SampleRate)
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))

	samples := make([]float32, 0, int(stream.Info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return media.AudioBuffer{}, fmt.Errorf("failed to decode flac frame: %w", err)
		}
		if len(frame.Subframes) != channels {
			return media.AudioBuffer{}, fmt.Errorf("flac frame has %d channels, stream declares %d", len(frame.Subframes), channels)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, float32(frame.Subframes[ch].Samples[i])/scale)
			}
		}
	}

	return media.NewAudioBuffer(samples, rate, channels)
}
