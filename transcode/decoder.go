// Package transcode turns encoded audio bytes into a mono float64 buffer
// at a fixed analysis rate, capped to a maximum duration.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jinglegen/jinglegen/algorithms/common"
	"github.com/jinglegen/jinglegen/algorithms/filters"
	"github.com/jinglegen/jinglegen/audioerr"
	"github.com/jinglegen/jinglegen/logging"
)

// ErrUnsupportedFormat is the cause of a decode error for containers that
// need ffmpeg when ffmpeg is disabled, or that cannot be identified at all.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioData represents decoded audio data
type AudioData struct {
	PCM              []float64     `json:"-"`
	SampleRate       int           `json:"sample_rate"`
	Channels         int           `json:"channels"`
	Duration         time.Duration `json:"duration"`
	SourceFormat     Format        `json:"source_format"`
	SourceSampleRate int           `json:"source_sample_rate"`
	SourceChannels   int           `json:"source_channels"`
	Truncated        bool          `json:"truncated"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	// TargetSampleRate is the output rate; 0 keeps the source rate
	TargetSampleRate int           `json:"target_sample_rate" mapstructure:"sample_rate"`
	MaxDuration      time.Duration `json:"max_duration" mapstructure:"max_duration"`
	FFmpegEnabled    bool          `json:"ffmpeg_enabled" mapstructure:"ffmpeg_enabled"`
	FFmpegPath       string        `json:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path" mapstructure:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 22050,
		MaxDuration:      15 * time.Second,
		FFmpegEnabled:    true,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          30 * time.Second,
	}
}

// Decoder handles audio decoding. It holds no per-call state and is safe
// for concurrent use.
type Decoder struct {
	config *DecoderConfig
	interp *common.Interpolator
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		interp: common.NewInterpolator(),
	}
}

// Config returns a copy of the decoder configuration
func (d *Decoder) Config() DecoderConfig {
	return *d.config
}

// Decode decodes data using hint (a filename or extension) to pick the
// container, falling back to magic-byte sniffing.
func (d *Decoder) Decode(ctx context.Context, data []byte, hint string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Decode",
		"hint":      hint,
		"data_size": len(data),
	})

	if len(data) == 0 {
		return nil, audioerr.NewEmptyAudioError("no audio data supplied")
	}

	format := ResolveFormat(hint, data)
	logger.Debug("Resolved audio format", logging.Fields{"format": string(format)})

	return d.finish(logger, format, func() (*pcm, error) {
		return d.decodeFormat(ctx, format, source{data: data})
	})
}

// DecodeFile decodes the file at path. hint overrides the path's own
// extension when set, which lets callers keep the uploaded name for a
// spooled file. Formats routed through ffmpeg are read from the path
// itself so containers that need seeking decode.
func (d *Decoder) DecodeFile(ctx context.Context, path, hint string) (*AudioData, error) {
	if hint == "" {
		hint = path
	}
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"path":      path,
		"hint":      hint,
	})

	header, size, err := readHeader(path)
	if err != nil {
		return nil, audioerr.NewDecodeError("failed to open audio file", err)
	}
	if size == 0 {
		return nil, audioerr.NewEmptyAudioError("no audio data supplied")
	}

	format := ResolveFormat(hint, header)
	logger.Debug("Resolved audio format", logging.Fields{"format": string(format), "file_size": size})

	return d.finish(logger, format, func() (*pcm, error) {
		if !format.Native() {
			return d.decodeFormat(ctx, format, source{path: path})
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return d.decodeFormat(ctx, format, source{data: data})
	})
}

// DecodeReader reads r fully and decodes it
func (d *Decoder) DecodeReader(ctx context.Context, r io.Reader, hint string) (*AudioData, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, audioerr.NewDecodeError("failed to read audio data", err)
	}
	return d.Decode(ctx, data, hint)
}

// RequiresFFmpeg reports whether data would be handed to ffmpeg rather
// than decoded in-process
func RequiresFFmpeg(hint string, data []byte) bool {
	return !ResolveFormat(hint, data).Native()
}

// finish runs decode and maps its outcome onto the decoder's error kinds
func (d *Decoder) finish(logger logging.Logger, format Format, decode func() (*pcm, error)) (*AudioData, error) {
	decoded, err := decode()
	if err != nil {
		logger.Debug("Audio decode failed", logging.Fields{"format": string(format), "error": err.Error()})
		return nil, audioerr.NewDecodeError(fmt.Sprintf("could not decode %s audio", describe(format)), err)
	}

	if len(decoded.samples) == 0 {
		return nil, audioerr.NewEmptyAudioError("decoded audio has no samples")
	}

	audio, err := d.normalize(decoded, format)
	if err != nil {
		return nil, audioerr.NewDecodeError("could not resample audio", err)
	}
	if len(audio.PCM) == 0 {
		return nil, audioerr.NewEmptyAudioError("decoded audio has no samples")
	}

	logger.Debug("Audio decode completed", logging.Fields{
		"source_sample_rate": audio.SourceSampleRate,
		"source_channels":    audio.SourceChannels,
		"sample_rate":        audio.SampleRate,
		"samples":            len(audio.PCM),
		"duration":           audio.Duration.Seconds(),
		"truncated":          audio.Truncated,
	})
	return audio, nil
}

func (d *Decoder) decodeFormat(ctx context.Context, format Format, src source) (*pcm, error) {
	switch format {
	case FormatWAV:
		return decodeWAV(src.data)
	case FormatMP3:
		return decodeMP3(src.data)
	case FormatOGG:
		return decodeOGG(src.data)
	}

	if !d.config.FFmpegEnabled {
		return nil, ErrUnsupportedFormat
	}
	return d.decodeFFmpeg(ctx, src)
}

// readHeader returns the leading bytes used for sniffing and the file size
func readHeader(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}

	header := make([]byte, 16)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, 0, err
	}
	return header[:n], info.Size(), nil
}

// normalize truncates to MaxDuration and resamples to the target rate
func (d *Decoder) normalize(decoded *pcm, format Format) (*AudioData, error) {
	if decoded.sampleRate <= 0 {
		return nil, fmt.Errorf("invalid source sample rate: %d", decoded.sampleRate)
	}

	samples := decoded.samples
	truncated := false
	if limit := maxSamples(d.config.MaxDuration, decoded.sampleRate); limit > 0 && len(samples) > limit {
		samples = samples[:limit]
		truncated = true
	}

	rate := decoded.sampleRate
	if target := d.config.TargetSampleRate; target > 0 && target != rate {
		filtered, err := filters.AntiAlias(samples, rate, target, 2)
		if err != nil {
			return nil, err
		}
		samples = d.interp.ResampleSignal(filtered, rate, target)
		rate = target

		if limit := maxSamples(d.config.MaxDuration, rate); limit > 0 && len(samples) > limit {
			samples = samples[:limit]
		}
	}

	return &AudioData{
		PCM:              samples,
		SampleRate:       rate,
		Channels:         1,
		Duration:         time.Duration(len(samples)) * time.Second / time.Duration(rate),
		SourceFormat:     format,
		SourceSampleRate: decoded.sampleRate,
		SourceChannels:   decoded.channels,
		Truncated:        truncated,
	}, nil
}

func maxSamples(limit time.Duration, rate int) int {
	if limit <= 0 {
		return 0
	}
	return int(limit.Seconds() * float64(rate))
}

func describe(format Format) string {
	if format == FormatUnknown {
		return "unrecognised"
	}
	return string(format)
}

// SupportedFormats lists the containers this decoder accepts
func (d *Decoder) SupportedFormats() []Format {
	formats := []Format{FormatWAV, FormatMP3, FormatOGG}
	if d.config.FFmpegEnabled {
		formats = append(formats, FormatFLAC, FormatM4A, FormatAAC, FormatWebM, FormatOpus)
	}
	return formats
}
