package audiofile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"deepfilter-media/domain/media"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format tags
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// WriteBitDepth is the PCM depth of every WAV this package writes
const WriteBitDepth = 16

// ReadWAV decodes a PCM or IEEE-float WAV file into a float buffer
func ReadWAV(path string) (media.AudioBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return media.AudioBuffer{}, err
	}
	defer f.Close()

	hdr, err := readWAVHeader(f)
	if err != nil {
		return media.AudioBuffer{}, fmt.Errorf("invalid wav file %s: %w", path, err)
	}
	if hdr.format == wavFormatFloat {
		return readFloatWAV(f, hdr)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return media.AudioBuffer{}, err
	}
	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return media.AudioBuffer{}, fmt.Errorf("audio file is not a valid wav file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return media.AudioBuffer{}, fmt.Errorf("failed to read PCM buffer: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	samples := intToFloat(buf.Data, bitDepth)

	return media.NewAudioBuffer(samples, buf.Format.SampleRate, buf.Format.NumChannels)
}

// WriteWAV encodes buf as 16-bit PCM
func WriteWAV(path string, buf media.AudioBuffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("cannot write wav: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	encoder := wav.NewEncoder(f, buf.SampleRate, WriteBitDepth, buf.Channels, wavFormatPCM)
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: buf.Channels,
			SampleRate:  buf.SampleRate,
		},
		Data:           floatToInt(buf.Samples, WriteBitDepth),
		SourceBitDepth: WriteBitDepth,
	}

	if err := encoder.Write(intBuf); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return f.Close()
}

func intToFloat(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		for i, v := range data {
			out[i] = float32(v-128) / 128
		}
		return out
	}
	scale := float32(int64(1) << (bitDepth - 1))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out
}

func floatToInt(samples []float32, bitDepth int) []int {
	peak := float64(int64(1)<<(bitDepth-1)) - 1
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * peak)
		if v > peak {
			v = peak
		} else if v < -peak-1 {
			v = -peak - 1
		}
		out[i] = int(v)
	}
	return out
}

// wavHeader is the subset of the fmt chunk needed to pick a decoder
type wavHeader struct {
	format        uint16
	channels      int
	sampleRate    int
	bitsPerSample int
	dataSize      int64
}

// readWAVHeader walks the RIFF chunks up to the data chunk
func readWAVHeader(r io.ReadSeeker) (wavHeader, error) {
	var hdr wavHeader

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return hdr, err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return hdr, errors.New("missing RIFF/WAVE header")
	}

	haveFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return hdr, errors.New("no data chunk")
			}
			return hdr, err
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return hdr, err
			}
			if len(body) < 16 {
				return hdr, errors.New("short fmt chunk")
			}
			hdr.format = binary.LittleEndian.Uint16(body[0:2])
			hdr.channels = int(binary.LittleEndian.Uint16(body[2:4]))
			hdr.sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			hdr.bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if hdr.format == wavFormatExtensible && len(body) >= 26 {
				// sub-format GUID starts with the real format tag
				hdr.format = binary.LittleEndian.Uint16(body[24:26])
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return hdr, errors.New("data chunk before fmt chunk")
			}
			hdr.dataSize = size
			return hdr, nil
		default:
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return hdr, err
			}
		}

		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return hdr, err
			}
		}
	}
}

// readFloatWAV decodes IEEE-float sample data; r must be positioned at the
// start of the data chunk
func readFloatWAV(r io.Reader, hdr wavHeader) (media.AudioBuffer, error) {
	if hdr.bitsPerSample != 32 && hdr.bitsPerSample != 64 {
		return media.AudioBuffer{}, fmt.Errorf("unsupported float wav depth %d", hdr.bitsPerSample)
	}

	data, err := io.ReadAll(io.LimitReader(r, hdr.dataSize))
	if err != nil {
		return media.AudioBuffer{}, fmt.Errorf("failed to read float samples: %w", err)
	}

	width := hdr.bitsPerSample / 8
	n := len(data) / width
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		b := data[i*width:]
		if width == 4 {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		} else {
			samples[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
	}
	if hdr.channels > 0 {
		samples = samples[:len(samples)-len(samples)%hdr.channels]
	}

	return media.NewAudioBuffer(samples, hdr.sampleRate, hdr.channels)
}
