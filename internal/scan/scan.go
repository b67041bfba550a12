// internal/scan/scan.go
//
// Scan sources produce decoded QR payloads (job business keys). Decoding
// itself happens outside this process — either on a hardware scanner or in
// a camera bridge — so a source is just a lifecycle around a stream of
// decoded strings. Decode failures never reach this package; they are
// high-frequency noise the decoder already suppresses.

package scan

import "context"

// Config is the capture configuration handed to the decoder.
type Config struct {
	TargetFPS          int  `yaml:"target_fps"`
	BoxWidth           int  `yaml:"box_width"`
	BoxHeight          int  `yaml:"box_height"`
	RememberLastCamera bool `yaml:"remember_last_camera"`
	PreferRearCamera   bool `yaml:"prefer_rear_camera"`
}

// DefaultConfig mirrors the capture settings the shop floor runs with.
func DefaultConfig() Config {
	return Config{
		TargetFPS:          10,
		BoxWidth:           250,
		BoxHeight:          250,
		RememberLastCamera: true,
		PreferRearCamera:   true,
	}
}

// Source is one decoder feed. Start begins producing on Codes; Stop ends
// production and may be called more than once. After Stop no further codes
// are delivered.
type Source interface {
	Start(ctx context.Context) error
	Stop()
	Codes() <-chan string
}
