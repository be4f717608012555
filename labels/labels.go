// Package labels maps raw descriptors to qualitative categories with a
// fixed threshold table. Every comparison is a strict inequality and the
// first matching band wins, so boundary values fall to the lower band.
package labels

import "github.com/jinglegen/jinglegen/analysis"

// Label values
const (
	High   = "High"
	Medium = "Medium"
	Low    = "Low"

	Bright = "Bright"
	Muted  = "Muted"

	Melodic    = "Melodic"
	Percussive = "Percussive"
	Mixed      = "Mixed"

	FastPaced   = "Fast-paced"
	MediumPaced = "Medium-paced"
	SlowPaced   = "Slow-paced"
)

// Thresholds
const (
	HighEnergyRolloff   = 3000.0
	MediumEnergyRolloff = 1500.0
	BrightBandwidth     = 2000.0
	MelodicRatio        = 0.6
	PercussiveRatio     = 0.4
	FastTempo           = 120
	MediumTempo         = 90
	HighDensity         = 2.0
	MediumDensity       = 1.0
)

// EnergyLevel labels spectral rolloff in Hz
func EnergyLevel(rolloff float64) string {
	switch {
	case rolloff > HighEnergyRolloff:
		return High
	case rolloff > MediumEnergyRolloff:
		return Medium
	default:
		return Low
	}
}

// Brightness labels spectral bandwidth in Hz
func Brightness(bandwidth float64) string {
	if bandwidth > BrightBandwidth {
		return Bright
	}
	return Muted
}

// InstrumentType labels the harmonic ratio
func InstrumentType(harmonicRatio float64) string {
	switch {
	case harmonicRatio > MelodicRatio:
		return Melodic
	case harmonicRatio < PercussiveRatio:
		return Percussive
	default:
		return Mixed
	}
}

// Style labels tempo in BPM
func Style(tempoBPM int) string {
	switch {
	case tempoBPM > FastTempo:
		return FastPaced
	case tempoBPM > MediumTempo:
		return MediumPaced
	default:
		return SlowPaced
	}
}

// BeatDensity labels onsets per second
func BeatDensity(onsetsPerSecond float64) string {
	switch {
	case onsetsPerSecond > HighDensity:
		return High
	case onsetsPerSecond > MediumDensity:
		return Medium
	default:
		return Low
	}
}

// MoodEnergy is the labelled mood/energy group
type MoodEnergy struct {
	analysis.MoodEnergy
	InterpretedEnergy     string `json:"interpreted_energy"`
	InterpretedBrightness string `json:"interpreted_brightness"`
}

// InstrumentAnalysis is the labelled harmonic/percussive group
type InstrumentAnalysis struct {
	analysis.InstrumentAnalysis
	InterpretedInstrumentType string `json:"interpreted_instrument_type"`
}

// MusicalCharacteristics is the labelled tempo group
type MusicalCharacteristics struct {
	analysis.MusicalCharacteristics
	InterpretedStyle string `json:"interpreted_style"`
}

// RhythmAnalysis is the labelled onset density group
type RhythmAnalysis struct {
	analysis.RhythmAnalysis
	InterpretedBeatDensity string `json:"interpreted_beat_density"`
}

// LabeledDescriptors is RawDescriptors with one label per dimension, laid
// out in the same groups
type LabeledDescriptors struct {
	MoodEnergy             MoodEnergy             `json:"mood_energy"`
	InstrumentAnalysis     InstrumentAnalysis     `json:"instrument_analysis"`
	MusicalCharacteristics MusicalCharacteristics `json:"musical_characteristics"`
	RhythmAnalysis         RhythmAnalysis         `json:"rhythm_analysis"`
}

// Raw returns the numeric descriptors without labels
func (l LabeledDescriptors) Raw() analysis.RawDescriptors {
	return analysis.RawDescriptors{
		MoodEnergy:             l.MoodEnergy.MoodEnergy,
		InstrumentAnalysis:     l.InstrumentAnalysis.InstrumentAnalysis,
		MusicalCharacteristics: l.MusicalCharacteristics.MusicalCharacteristics,
		RhythmAnalysis:         l.RhythmAnalysis.RhythmAnalysis,
	}
}

// Classify labels every group of raw. It is pure and total.
func Classify(raw analysis.RawDescriptors) LabeledDescriptors {
	return LabeledDescriptors{
		MoodEnergy: MoodEnergy{
			MoodEnergy:            raw.MoodEnergy,
			InterpretedEnergy:     EnergyLevel(raw.MoodEnergy.SpectralRolloff),
			InterpretedBrightness: Brightness(raw.MoodEnergy.SpectralBandwidth),
		},
		InstrumentAnalysis: InstrumentAnalysis{
			InstrumentAnalysis:        raw.InstrumentAnalysis,
			InterpretedInstrumentType: InstrumentType(raw.InstrumentAnalysis.HarmonicRatio),
		},
		MusicalCharacteristics: MusicalCharacteristics{
			MusicalCharacteristics: raw.MusicalCharacteristics,
			InterpretedStyle:       Style(raw.MusicalCharacteristics.TempoBPM),
		},
		RhythmAnalysis: RhythmAnalysis{
			RhythmAnalysis:         raw.RhythmAnalysis,
			InterpretedBeatDensity: BeatDensity(raw.RhythmAnalysis.RhythmDensity),
		},
	}
}
