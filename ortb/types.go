package ortb

// BidRequest is a mock OpenRTB audio bid request. It carries only the
// fields this service fills in.
type BidRequest struct {
	ID     string `json:"id"`
	Imp    []Imp  `json:"imp"`
	App    App    `json:"app"`
	Device Device `json:"device"`
	User   User   `json:"user"`
	At     int    `json:"at"`
	TMax   int    `json:"tmax"`
	Regs   Regs   `json:"regs"`
}

// Imp is one impression opportunity
type Imp struct {
	ID    string `json:"id"`
	Audio Audio  `json:"audio"`
	Ext   ImpExt `json:"ext"`
}

// Audio describes the audio ad slot
type Audio struct {
	Mimes       []string `json:"mimes"`
	MinDuration int      `json:"minduration"`
	MaxDuration int      `json:"maxduration"`
}

// ImpExt holds the custom extension payload
type ImpExt struct {
	CustomAudioSignals Signals `json:"custom_audio_signals"`
}

// Signals are the audio descriptors exposed to bidders
type Signals struct {
	EnergyLevel            string `json:"energy_level"`
	Brightness             string `json:"brightness"`
	InstrumentType         string `json:"instrument_type"`
	TempoBPM               int    `json:"tempo_bpm"`
	Style                  string `json:"style"`
	BeatDensity            string `json:"beat_density"`
	OnsetCount             int    `json:"onset_count"`
	TranscribedTextSnippet string `json:"transcribed_text_snippet,omitempty"`
}

// App identifies the publishing application
type App struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bundle    string    `json:"bundle"`
	Publisher Publisher `json:"publisher"`
}

// Publisher identifies the app's publisher
type Publisher struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Device describes the requesting client
type Device struct {
	UA         string `json:"ua"`
	IP         string `json:"ip"`
	DeviceType int    `json:"devicetype"`
	OS         string `json:"os,omitempty"`
}

// User is an unlinked per-request user
type User struct {
	ID string `json:"id"`
}

// Regs carries regulatory flags
type Regs struct {
	COPPA int     `json:"coppa"`
	Ext   RegsExt `json:"ext"`
}

// RegsExt carries the GDPR flag
type RegsExt struct {
	GDPR int `json:"gdpr"`
}

// DeviceContext is caller-supplied client information. Empty fields fall
// back to the profile defaults.
type DeviceContext struct {
	UserAgent  string `json:"ua,omitempty"`
	IP         string `json:"ip,omitempty"`
	OS         string `json:"os,omitempty"`
	DeviceType int    `json:"devicetype,omitempty"`
}
