package temporal

import (
	"math"

	"github.com/jinglegen/jinglegen/algorithms/spectral"
	"gonum.org/v1/gonum/floats"
)

// OnsetConfig holds the peak-picking parameters. Times are in seconds and
// are converted to frames using the envelope's frame rate.
type OnsetConfig struct {
	PreMax  float64
	PostMax float64
	PreAvg  float64
	PostAvg float64
	Wait    float64
	Delta   float64
	// TopDB floors the log-power spectrogram this many dB below its peak
	TopDB float64
}

// DefaultOnsetConfig returns the standard onset picking parameters
func DefaultOnsetConfig() OnsetConfig {
	return OnsetConfig{
		PreMax:  0.03,
		PostMax: 0.0,
		PreAvg:  0.10,
		PostAvg: 0.10,
		Wait:    0.03,
		Delta:   0.07,
		TopDB:   80.0,
	}
}

const powerFloor = 1e-10

// OnsetDetection derives an onset-strength envelope from a magnitude
// spectrogram and picks discrete onset frames from it.
type OnsetDetection struct {
	config       OnsetConfig
	spectralFlux *spectral.SpectralFlux
}

// NewOnsetDetection creates a new onset detector
func NewOnsetDetection(config OnsetConfig) *OnsetDetection {
	return &OnsetDetection{
		config:       config,
		spectralFlux: spectral.NewSpectralFlux(),
	}
}

// Strength computes the onset-strength envelope: the mean positive change
// of the log-power spectrum between adjacent frames. The result has one
// value per spectrogram frame; leading frames without a predecessor are 0.
func (od *OnsetDetection) Strength(magnitude [][]float64) []float64 {
	if len(magnitude) == 0 {
		return []float64{}
	}

	logPower := od.toDecibels(magnitude)
	flux := od.spectralFlux.RectifiedMean(logPower)

	lag := len(magnitude) - len(flux)
	envelope := make([]float64, len(magnitude))
	copy(envelope[lag:], flux)
	return envelope
}

// toDecibels converts magnitudes to dB power, clamped to TopDB below the peak
func (od *OnsetDetection) toDecibels(magnitude [][]float64) [][]float64 {
	out := make([][]float64, len(magnitude))
	peak := math.Inf(-1)

	for t, row := range magnitude {
		db := make([]float64, len(row))
		for k, m := range row {
			db[k] = 10 * math.Log10(math.Max(powerFloor, m*m))
		}
		if len(db) > 0 {
			peak = math.Max(peak, floats.Max(db))
		}
		out[t] = db
	}

	if od.config.TopDB > 0 && !math.IsInf(peak, -1) {
		floor := peak - od.config.TopDB
		for _, row := range out {
			for k, v := range row {
				if v < floor {
					row[k] = floor
				}
			}
		}
	}
	return out
}

// Detect returns the frame indices of onsets in envelope. frameRate is
// envelope frames per second (sampleRate / hop). An envelope with no
// positive values has no onsets.
func (od *OnsetDetection) Detect(envelope []float64, frameRate float64) []int {
	if len(envelope) == 0 || frameRate <= 0 {
		return []int{}
	}

	norm := normalizeMinMax(envelope)
	if norm == nil {
		return []int{}
	}

	c := od.config
	preMax := int(c.PreMax * frameRate)
	postMax := int(c.PostMax*frameRate) + 1
	preAvg := int(c.PreAvg * frameRate)
	postAvg := int(c.PostAvg*frameRate) + 1
	wait := int(c.Wait * frameRate)

	return pickPeaks(norm, preMax, postMax, preAvg, postAvg, c.Delta, wait)
}

// normalizeMinMax rescales x into [0, 1]. Returns nil for a flat envelope.
func normalizeMinMax(x []float64) []float64 {
	lo, hi := floats.Min(x), floats.Max(x)
	if hi-lo <= 0 || math.IsNaN(hi-lo) || math.IsInf(hi-lo, 0) {
		return nil
	}

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// pickPeaks keeps sample n when it is the maximum of x[n-preMax:n+postMax],
// at least delta above the mean of x[n-preAvg:n+postAvg], and more than
// wait frames after the previous pick. Windows are clipped at the edges.
func pickPeaks(x []float64, preMax, postMax, preAvg, postAvg int, delta float64, wait int) []int {
	peaks := []int{}
	last := math.MinInt / 2

	for n := range x {
		lo, hi := max(0, n-preMax), min(len(x), n+postMax)
		if x[n] < floats.Max(x[lo:hi]) {
			continue
		}

		lo, hi = max(0, n-preAvg), min(len(x), n+postAvg)
		mean := floats.Sum(x[lo:hi]) / float64(hi-lo)
		if x[n] < mean+delta {
			continue
		}

		if n-last <= wait {
			continue
		}

		peaks = append(peaks, n)
		last = n
	}
	return peaks
}

// Density returns onsets per second over a buffer of the given duration.
// A zero duration yields 0.
func Density(onsetCount int, durationSeconds float64) float64 {
	if durationSeconds <= 0 {
		return 0
	}
	return float64(onsetCount) / durationSeconds
}
