package audiofile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"deepfilter-media/domain/media"

	"github.com/hajimehoshi/go-mp3"
)

// ReadMP3 decodes an MP3 file. The decoder always produces 16-bit stereo,
// so mono sources come back with both channels equal.
func ReadMP3(path string) (media.AudioBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return media.AudioBuffer{}, err
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return media.AudioBuffer{}, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return media.AudioBuffer{}, fmt.Errorf("failed to decode mp3: %w", err)
	}

	n := len(pcm) / 2
	n -= n % 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(v) / 32768
	}

	return media.NewAudioBuffer(samples, decoder.SampleRate(), 2)
}
