package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jinglegen/jinglegen/logging"
)

// AudioMetadata holds detected audio properties from ffprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// source is the input handed to ffmpeg: a file path when one exists,
// otherwise bytes streamed over stdin. Containers that keep their index
// after the media data (MP4/M4A with a trailing moov atom) only decode
// from a seekable file.
type source struct {
	path string
	data []byte
}

func (s source) input() string {
	if s.path != "" {
		return s.path
	}
	return "pipe:0"
}

func (s source) stdin() io.Reader {
	if s.path != "" {
		return nil
	}
	return bytes.NewReader(s.data)
}

// decodeFFmpeg reads stream metadata then decodes src through ffmpeg,
// asking for mono float64 output at the target rate (or the source rate
// when the target is 0).
func (d *Decoder) decodeFFmpeg(ctx context.Context, src source) (*pcm, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeFFmpeg",
		"input":     src.input(),
		"data_size": len(src.data),
	})

	metadata, err := d.streamInfo(ctx, src)
	if err != nil {
		logger.Debug("Failed to read audio metadata", logging.Fields{"error": err.Error()})
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	outputRate := d.config.TargetSampleRate
	if outputRate <= 0 {
		outputRate = metadata.SampleRate
	}

	args := []string{
		"-v", "error",
		"-i", src.input(),
		"-map", "0:a:0",
		"-vn",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(outputRate),
	}
	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}
	args = append(args, "pipe:1")

	output, err := d.run(ctx, d.config.FFmpegPath, args, src.stdin())
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	logger.Debug("FFmpeg decode completed", logging.Fields{
		"output_samples":     len(samples),
		"output_sample_rate": outputRate,
	})

	return &pcm{
		samples:    samples,
		sampleRate: outputRate,
		channels:   metadata.Channels,
	}, nil
}

// streamInfo uses ffprobe to read the first audio stream's properties
func (d *Decoder) streamInfo(ctx context.Context, src source) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		src.input(),
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, src.stdin())
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseFFprobeOutput(output)
}

// run executes a binary under the configured timeout, feeding stdin when
// it is non-nil
func (d *Decoder) run(ctx context.Context, binary string, args []string, stdin io.Reader) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	logging.Debug("Running command", logging.Fields{
		"command": binary + " " + strings.Join(args, " "),
	})

	start := time.Now()
	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, err
	}

	logging.Debug("Command completed", logging.Fields{
		"binary":       binary,
		"output_bytes": len(output),
		"elapsed":      time.Since(start).Seconds(),
	})
	return output, nil
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var parsed struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(parsed.Streams) == 0 {
		return nil, errors.New("no audio streams found")
	}

	stream := parsed.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		sampleRate = 44100
	}

	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// bytesToFloat64 converts raw little-endian float64 bytes, dropping any
// trailing partial sample.
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-(len(data)%8)]

	samples := make([]float64, len(data)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples
}

// CheckFFmpeg verifies that ffmpeg and ffprobe can be executed
func (d *Decoder) CheckFFmpeg(ctx context.Context) error {
	for _, binary := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if err := exec.CommandContext(ctx, binary, "-version").Run(); err != nil {
			return fmt.Errorf("%s not available: %w", binary, err)
		}
	}
	return nil
}
