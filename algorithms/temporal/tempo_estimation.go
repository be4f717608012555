package temporal

import (
	"math"

	"github.com/jinglegen/jinglegen/algorithms/common"
	"github.com/jinglegen/jinglegen/algorithms/spectral"
	"github.com/jinglegen/jinglegen/algorithms/windowing"
	"gonum.org/v1/gonum/floats"
)

// TempoConfig controls the tempo prior and autocorrelation window
type TempoConfig struct {
	StartBPM float64 // centre of the log-normal tempo prior
	StdBPM   float64 // prior width in octaves
	MaxTempo float64 // tempi above this are never chosen
	ACSize   float64 // autocorrelation window, seconds
}

// DefaultTempoConfig returns the standard tempo estimation parameters
func DefaultTempoConfig() TempoConfig {
	return TempoConfig{
		StartBPM: 120,
		StdBPM:   1.0,
		MaxTempo: 320,
		ACSize:   8.0,
	}
}

// TempoEstimation estimates a global tempo from an onset-strength envelope
type TempoEstimation struct {
	config TempoConfig
	fft    *spectral.FFT
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation(config TempoConfig) *TempoEstimation {
	return &TempoEstimation{
		config: config,
		fft:    spectral.NewFFT(),
	}
}

// Estimate returns the tempo in BPM, or 0 when the envelope carries no
// periodicity to measure (empty, all-zero, or non-finite).
func (te *TempoEstimation) Estimate(envelope []float64, frameRate float64) float64 {
	if len(envelope) == 0 || frameRate <= 0 {
		return 0
	}
	if floats.Max(envelope) <= 0 || floats.HasNaN(envelope) {
		return 0
	}

	winLength := int(te.config.ACSize * frameRate)
	if winLength < 2 {
		return 0
	}

	tg := te.meanTempogram(envelope, winLength)
	if floats.Max(tg) <= 0 {
		return 0
	}

	best, bestScore := 0, math.Inf(-1)
	for lag := 1; lag < len(tg); lag++ {
		bpm := 60.0 * frameRate / float64(lag)
		if bpm > te.config.MaxTempo {
			continue
		}
		score := math.Log1p(1e6*tg[lag]) + te.logPrior(bpm)
		if score > bestScore {
			best, bestScore = lag, score
		}
	}

	if best == 0 {
		return 0
	}
	return 60.0 * frameRate / float64(best)
}

func (te *TempoEstimation) logPrior(bpm float64) float64 {
	z := (math.Log2(bpm) - math.Log2(te.config.StartBPM)) / te.config.StdBPM
	return -0.5 * z * z
}

// meanTempogram computes a windowed local autocorrelation for every envelope
// frame, normalises each to unit peak, and averages them over time.
func (te *TempoEstimation) meanTempogram(envelope []float64, winLength int) []float64 {
	pad := winLength / 2
	padded := rampPad(envelope, pad)
	coeffs := windowing.NewHann(winLength, false).Coefficients()

	nfft := common.NextPowerOfTwo(2*winLength - 1)

	mean := make([]float64, winLength)
	segment := make([]float64, winLength)
	buf := make([]float64, nfft)

	for t := range envelope {
		copy(segment, padded[t:t+winLength])
		floats.Mul(segment, coeffs)

		clear(buf)
		copy(buf, segment)
		ac := te.autocorrelate(buf)[:winLength]

		peak := 0.0
		for _, v := range ac {
			peak = math.Max(peak, math.Abs(v))
		}
		if peak == 0 {
			continue
		}
		for i, v := range ac {
			mean[i] += v / peak
		}
	}

	floats.Scale(1/float64(len(envelope)), mean)
	return mean
}

// autocorrelate returns the circular autocorrelation of a zero-padded frame
// via the power spectrum.
func (te *TempoEstimation) autocorrelate(frame []float64) []float64 {
	spectrum := te.fft.Compute(frame)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	return te.fft.ComputeInverseReal(spectrum)
}

// rampPad pads pad values on both sides, ramping linearly from the edge
// value down to zero.
func rampPad(x []float64, pad int) []float64 {
	out := make([]float64, len(x)+2*pad+1)
	first, last := x[0], x[len(x)-1]
	for i := range pad {
		out[i] = first * float64(i) / float64(pad)
		out[pad+len(x)+i] = last * float64(pad-i) / float64(pad)
	}
	copy(out[pad:], x)
	return out
}
