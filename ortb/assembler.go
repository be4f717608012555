// Package ortb builds mock OpenRTB audio bid requests that carry the
// labelled audio descriptors as custom impression signals.
package ortb

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jinglegen/jinglegen/labels"
)

// Fixed auction parameters
const (
	FirstPriceAuction = 1
	// TMaxMillis is advisory; nothing here enforces it
	TMaxMillis = 200
	// MaxTranscriptRunes bounds the transcript snippet signal
	MaxTranscriptRunes = 256
)

// AudioMimes are the creative types the impression accepts
var AudioMimes = []string{"audio/mpeg", "audio/wav"}

// Assembler builds bid requests for one deployment profile
type Assembler struct {
	profile Profile
	now     func() time.Time
}

// NewAssembler creates an assembler for profile
func NewAssembler(profile Profile) *Assembler {
	return &Assembler{profile: profile, now: time.Now}
}

// Profile returns the assembler's deployment profile
func (a *Assembler) Profile() Profile {
	return a.profile
}

// Assemble builds a fresh request. transcript may be empty; device may be
// nil. Every call gets new request and user identifiers.
func (a *Assembler) Assemble(labeled labels.LabeledDescriptors, transcript string, device *DeviceContext) *BidRequest {
	return &BidRequest{
		ID: a.requestID(),
		Imp: []Imp{{
			ID: "1",
			Audio: Audio{
				Mimes:       append([]string(nil), AudioMimes...),
				MinDuration: 1,
				MaxDuration: a.profile.MaxDuration,
			},
			Ext: ImpExt{CustomAudioSignals: BuildSignals(labeled, transcript)},
		}},
		App:    a.profile.App,
		Device: a.device(device),
		User:   User{ID: fmt.Sprintf("%s-%s", a.profile.UserPrefix, uuid.NewString())},
		At:     FirstPriceAuction,
		TMax:   TMaxMillis,
		Regs:   Regs{COPPA: 0, Ext: RegsExt{GDPR: 0}},
	}
}

// BuildSignals extracts the bidder-facing signals from labeled
func BuildSignals(labeled labels.LabeledDescriptors, transcript string) Signals {
	return Signals{
		EnergyLevel:            labeled.MoodEnergy.InterpretedEnergy,
		Brightness:             labeled.MoodEnergy.InterpretedBrightness,
		InstrumentType:         labeled.InstrumentAnalysis.InterpretedInstrumentType,
		TempoBPM:               labeled.MusicalCharacteristics.TempoBPM,
		Style:                  labeled.MusicalCharacteristics.InterpretedStyle,
		BeatDensity:            labeled.RhythmAnalysis.InterpretedBeatDensity,
		OnsetCount:             labeled.RhythmAnalysis.OnsetCount,
		TranscribedTextSnippet: TruncateRunes(transcript, MaxTranscriptRunes),
	}
}

func (a *Assembler) requestID() string {
	id := uuid.New()
	if a.profile.TimestampIDs {
		now := a.now().UTC()
		return fmt.Sprintf("%s-%s%06d-%s", a.profile.IDPrefix, now.Format("20060102150405"), now.Nanosecond()/1000, id.String()[:8])
	}
	return fmt.Sprintf("%s-%s", a.profile.IDPrefix, id)
}

func (a *Assembler) device(ctx *DeviceContext) Device {
	d := a.profile.Device
	if ctx == nil {
		return d
	}
	if ctx.UserAgent != "" {
		d.UA = ctx.UserAgent
	}
	if ctx.IP != "" {
		d.IP = ctx.IP
	}
	if ctx.OS != "" {
		d.OS = ctx.OS
	}
	if ctx.DeviceType != 0 {
		d.DeviceType = ctx.DeviceType
	}
	return d
}

// TruncateRunes returns s cut to at most n code points
func TruncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
