package spectral

import (
	"errors"
	"fmt"
	"math/cmplx"
)

// ErrSignalTooShort is returned when a non-centred transform is asked to
// frame a signal shorter than one window.
var ErrSignalTooShort = errors.New("signal too short for given window size")

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// STFTConfig controls framing. Center pads WindowSize/2 zeros on both
// sides so frame t is centred on sample t*HopSize.
type STFTConfig struct {
	WindowSize int
	HopSize    int
	Center     bool
}

// DefaultSTFTConfig matches the framing the descriptor thresholds were tuned with
func DefaultSTFTConfig() STFTConfig {
	return STFTConfig{
		WindowSize: 2048,
		HopSize:    512,
		Center:     true,
	}
}

// STFTResult holds the magnitude spectrogram, frames first.
type STFTResult struct {
	Magnitude      [][]float64 `json:"-"`               // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Hz per bin
	TimeResolution float64     `json:"time_resolution"` // Seconds per frame
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// Compute runs the transform frame by frame on call-local buffers.
func (s *STFT) Compute(signal []float64, sampleRate int, cfg STFTConfig, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if cfg.HopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	padded := signal
	if cfg.Center {
		pad := cfg.WindowSize / 2
		padded = make([]float64, len(signal)+2*pad)
		copy(padded[pad:], signal)
	}

	if len(padded) < cfg.WindowSize {
		return nil, fmt.Errorf("%w: %d samples, window %d", ErrSignalTooShort, len(signal), cfg.WindowSize)
	}

	numFrames := (len(padded)-cfg.WindowSize)/cfg.HopSize + 1
	freqBins := cfg.WindowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	frame := make([]float64, cfg.WindowSize)

	for t := range numFrames {
		start := t * cfg.HopSize
		copy(frame, padded[start:start+cfg.WindowSize])

		if window != nil {
			if err := window.ApplyInPlace(frame); err != nil {
				return nil, fmt.Errorf("frame %d: %w", t, err)
			}
		}

		spectrum := s.fft.Compute(frame)
		row := make([]float64, freqBins)
		for k := range freqBins {
			row[k] = cmplx.Abs(spectrum[k])
		}
		magnitude[t] = row
	}

	return &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     cfg.WindowSize,
		HopSize:        cfg.HopSize,
		FreqResolution: float64(sampleRate) / float64(cfg.WindowSize),
		TimeResolution: float64(cfg.HopSize) / float64(sampleRate),
	}, nil
}

// Power returns |X|^2 for every cell of a magnitude spectrogram.
func Power(magnitude [][]float64) [][]float64 {
	out := make([][]float64, len(magnitude))
	for t, row := range magnitude {
		p := make([]float64, len(row))
		for k, v := range row {
			p[k] = v * v
		}
		out[t] = p
	}
	return out
}

// FrequencyBins returns the centre frequency of each of numBins bins for an
// FFT of size (numBins-1)*2.
func FrequencyBins(numBins, sampleRate int) []float64 {
	bins := make([]float64, numBins)
	if numBins < 2 {
		return bins
	}
	for i := range numBins {
		bins[i] = float64(i) * float64(sampleRate) / float64((numBins-1)*2)
	}
	return bins
}
