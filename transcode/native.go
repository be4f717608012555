package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// pcm is a decoded mono signal at its source rate
type pcm struct {
	samples    []float64
	sampleRate int
	channels   int
}

// decodeWAV reads integer PCM WAV files of any bit depth
func decodeWAV(data []byte) (*pcm, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, errors.New("WAV file has no format chunk")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))

	// 8-bit WAV is unsigned
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	interleaved := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		interleaved[i] = float64(s-offset) * scale
	}

	return &pcm{
		samples:    downmix(interleaved, channels),
		sampleRate: buf.Format.SampleRate,
		channels:   channels,
	}, nil
}

// decodeMP3 reads MP3; go-mp3 always yields 16-bit little-endian stereo
func decodeMP3(data []byte) (*pcm, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating MP3 decoder: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}

	const (
		bytesPerSample = 2
		numChannels    = 2
	)

	interleaved := make([]float64, len(raw)/bytesPerSample)
	for i := range interleaved {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		interleaved[i] = float64(v) / 32768.0
	}

	return &pcm{
		samples:    downmix(interleaved, numChannels),
		sampleRate: decoder.SampleRate(),
		channels:   numChannels,
	}, nil
}

// decodeOGG reads Ogg Vorbis
func decodeOGG(data []byte) (*pcm, error) {
	decoder, err := oggvorbis.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create OGG decoder: %w", err)
	}

	var interleaved []float64
	buffer := make([]float32, 16384)
	for {
		n, err := decoder.Read(buffer)
		for _, s := range buffer[:n] {
			interleaved = append(interleaved, float64(s))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read OGG data: %w", err)
		}
	}

	return &pcm{
		samples:    downmix(interleaved, decoder.Channels()),
		sampleRate: decoder.SampleRate(),
		channels:   decoder.Channels(),
	}, nil
}

// downmix averages interleaved channels into one. A trailing partial
// frame is dropped.
func downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
