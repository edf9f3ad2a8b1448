package devices

import (
	"context"
)

// Backend is one platform's camera access layer. Every call opens what it
// needs and releases it before returning.
//
// Listing omits devices that cannot be opened. GetFormats and GetControls
// return an empty slice for a device with nothing to report. SetControl
// errors carry a deverr kind.
type Backend interface {
	Name() string
	ListDevices(ctx context.Context) ([]DeviceInfo, error)
	GetFormats(ctx context.Context, index int) ([]VideoFormat, error)
	GetControls(ctx context.Context, index int) ([]ControlInfo, error)
	SetControl(ctx context.Context, index int, name string, value int) error
}

// Backend selection values for Options.Backend.
const (
	BackendAuto     = ""
	BackendNative   = "native"
	BackendFallback = "fallback"
	BackendMemory   = "memory"
)

// Options configures New.
type Options struct {
	// Backend forces a backend: native, fallback or memory. Empty picks
	// native and degrades to fallback.
	Backend string `toml:"backend"`
	// Quiet silences the vision library's own logging.
	Quiet bool `toml:"quiet"`
	// MaxProbe is how many indices the fallback backend probes.
	MaxProbe int `toml:"max_probe"`
}
