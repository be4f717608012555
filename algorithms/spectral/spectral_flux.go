package spectral

// SpectralFlux measures frame-to-frame spectral change
type SpectralFlux struct {
	// Lag is the frame distance to difference against (1 = adjacent frames)
	Lag int
}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{Lag: 1}
}

// RectifiedMean returns, for each frame t >= Lag, the mean over bins of
// max(0, S[t][f] - S[t-Lag][f]). This is the onset-strength form of flux.
func (sf *SpectralFlux) RectifiedMean(spectrogram [][]float64) []float64 {
	lag := max(sf.Lag, 1)
	if len(spectrogram) <= lag {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-lag)
	for t := lag; t < len(spectrogram); t++ {
		cur, prev := spectrogram[t], spectrogram[t-lag]
		if len(cur) == 0 {
			continue
		}
		sum := 0.0
		for f := range cur {
			if diff := cur[f] - prev[f]; diff > 0 {
				sum += diff
			}
		}
		flux[t-lag] = sum / float64(len(cur))
	}
	return flux
}
