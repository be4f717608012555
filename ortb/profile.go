package ortb

// Device types from the OpenRTB 2.x list
const (
	DeviceTypeMobile = 1
	DeviceTypePC     = 2
)

// Profile is the static metadata of one deployment
type Profile struct {
	Name string
	// IDPrefix starts every request ID; TimestampIDs adds a timestamp
	// before the random suffix.
	IDPrefix     string
	TimestampIDs bool
	UserPrefix   string
	MaxDuration  int
	App          App
	Device       Device
}

// LocalProfile is used by the HTTP server and the CLI
func LocalProfile() Profile {
	return Profile{
		Name:         "local",
		IDPrefix:     "bid-local",
		TimestampIDs: true,
		UserPrefix:   "local-user-api",
		MaxDuration:  5,
		App: App{
			ID:     "jinglegen-app-v1-local",
			Name:   "JingleGen Audio Analyzer (Local Demo)",
			Bundle: "com.example.jinglegen.local",
			Publisher: Publisher{
				ID:   "pub-local-12345",
				Name: "JingleGen Publisher (Local)",
			},
		},
		Device: Device{
			UA:         "LocalTestClient/1.0",
			IP:         "127.0.0.1",
			DeviceType: DeviceTypePC,
		},
	}
}

// CloudProfile is used by the Lambda handler
func CloudProfile() Profile {
	return Profile{
		Name:        "cloud",
		IDPrefix:    "bid-cloud",
		UserPrefix:  "cloud-user",
		MaxDuration: 15,
		App: App{
			ID:     "jinglegen-cloud-app-v2",
			Name:   "JingleGen Audio Analyzer (Cloud V2)",
			Bundle: "com.example.jinglegen.cloud",
			Publisher: Publisher{
				ID:   "pub-cloud-jinglegen",
				Name: "JingleGen Cloud Services",
			},
		},
		Device: Device{
			UA:         "Unknown",
			IP:         "0.0.0.0",
			DeviceType: DeviceTypePC,
			OS:         "Unknown",
		},
	}
}

// ProfileByName returns the named profile. An empty name selects local;
// an unknown name returns local and false.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case "", "local":
		return LocalProfile(), true
	case "cloud":
		return CloudProfile(), true
	default:
		return LocalProfile(), false
	}
}
