package filters

import (
	"fmt"
	"math"
)

// LowpassFilter is a second-order lowpass biquad.
//
// Coefficients follow Robert Bristow-Johnson's
// "Cookbook formulae for audio EQ biquad filter coefficients"
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type LowpassFilter struct {
	sampleRate int
	cutoff     float64 // Cutoff frequency in Hz
	qFactor    float64

	// Biquad coefficients, normalised by a0
	b0, b1, b2 float64
	a1, a2     float64

	// Direct form II delay line
	w1, w2 float64
}

// ButterworthQ gives a maximally flat passband for a single biquad section
const ButterworthQ = 1 / math.Sqrt2

// NewLowpassFilter creates a lowpass filter with a Butterworth response
func NewLowpassFilter(sampleRate int, cutoff float64) (*LowpassFilter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	nyquist := float64(sampleRate) / 2
	if cutoff <= 0 || cutoff >= nyquist {
		return nil, fmt.Errorf("cutoff must be between 0 and Nyquist (%.0f Hz), got %.1f", nyquist, cutoff)
	}

	lf := &LowpassFilter{
		sampleRate: sampleRate,
		cutoff:     cutoff,
		qFactor:    ButterworthQ,
	}
	lf.computeCoefficients()
	return lf, nil
}

func (lf *LowpassFilter) computeCoefficients() {
	w0 := 2.0 * math.Pi * lf.cutoff / float64(lf.sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2.0 * lf.qFactor)

	a0 := 1.0 + alpha
	lf.b0 = (1.0 - cosW0) / 2.0 / a0
	lf.b1 = (1.0 - cosW0) / a0
	lf.b2 = lf.b0
	lf.a1 = -2.0 * cosW0 / a0
	lf.a2 = (1.0 - alpha) / a0
}

// Process filters a single sample.
//
// y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] - a1*y[n-1] - a2*y[n-2]
func (lf *LowpassFilter) Process(input float64) float64 {
	w := input - lf.a1*lf.w1 - lf.a2*lf.w2
	output := lf.b0*w + lf.b1*lf.w1 + lf.b2*lf.w2

	lf.w2 = lf.w1
	lf.w1 = w

	return output
}

// ProcessBuffer filters a whole buffer and returns a new slice
func (lf *LowpassFilter) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = lf.Process(sample)
	}
	return output
}

// Reset clears the delay line
func (lf *LowpassFilter) Reset() {
	lf.w1, lf.w2 = 0, 0
}

// Gain returns the linear magnitude response at frequency.
//
// H(e^jw) = (b0 + b1*e^-jw + b2*e^-j2w) / (1 + a1*e^-jw + a2*e^-j2w)
func (lf *LowpassFilter) Gain(frequency float64) float64 {
	w := 2.0 * math.Pi * frequency / float64(lf.sampleRate)
	z1 := complex(math.Cos(w), -math.Sin(w))
	z2 := z1 * z1

	num := complex(lf.b0, 0) + complex(lf.b1, 0)*z1 + complex(lf.b2, 0)*z2
	den := 1 + complex(lf.a1, 0)*z1 + complex(lf.a2, 0)*z2
	return cmplxAbs(num / den)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// AntiAlias runs signal through a cascade of lowpass sections with the
// cutoff just below the target Nyquist. Used before decimation.
func AntiAlias(signal []float64, sampleRate, targetRate, sections int) ([]float64, error) {
	if targetRate >= sampleRate {
		return signal, nil
	}

	out := signal
	for range max(sections, 1) {
		lf, err := NewLowpassFilter(sampleRate, 0.45*float64(targetRate))
		if err != nil {
			return nil, err
		}
		out = lf.ProcessBuffer(out)
	}
	return out, nil
}
