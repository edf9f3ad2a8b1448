package devices

import (
	"strings"
)

// Provenance tells where a ControlInfo's numbers came from.
type Provenance string

const (
	// SourceHardware values were read back from the device.
	SourceHardware Provenance = "hardware"
	// SourceSimulated values are generated stand-ins for a device whose
	// native control interface could not be reached.
	SourceSimulated Provenance = "simulated"
	// SourceSynthetic values come from a fixed default table.
	SourceSynthetic Provenance = "synthetic"
)

// AutomaticSuffix names the companion control that toggles auto mode.
const AutomaticSuffix = "_automatic"

// DeviceInfo describes one camera as seen by a backend. Index is only
// stable within one listing; Path is stable on Linux and macOS.
type DeviceInfo struct {
	Index       int    `json:"index" example:"0" doc:"Device index"`
	Name        string `json:"name" example:"HD Pro Webcam C920" doc:"Device name"`
	Path        string `json:"path" example:"/dev/video0" doc:"Platform device identifier"`
	Description string `json:"description,omitempty" doc:"Backend-specific description"`
}

// VideoFormat is one (pixel format, size, frame rate) combination.
type VideoFormat struct {
	Width       int     `json:"width" example:"1920"`
	Height      int     `json:"height" example:"1080"`
	FPS         float64 `json:"fps" example:"30"`
	PixelFormat string  `json:"pixel_format" example:"MJPG"`
	Description string  `json:"description,omitempty" example:"Motion-JPEG"`
}

// ControlInfo is a snapshot of one control in backend-native units.
type ControlInfo struct {
	Name          string     `json:"name" example:"brightness"`
	Min           int        `json:"min"`
	Max           int        `json:"max"`
	Step          int        `json:"step"`
	Default       int        `json:"default"`
	Current       int        `json:"current"`
	Flags         uint32     `json:"flags"`
	AutoSupported bool       `json:"auto_supported"`
	Description   string     `json:"description,omitempty"`
	Source        Provenance `json:"source" enum:"hardware,simulated,synthetic"`
}

// InRange reports whether v lies within [Min, Max].
func (c ControlInfo) InRange(v int) bool {
	return v >= c.Min && v <= c.Max
}

// FindControl returns the control with the given name.
func FindControl(controls []ControlInfo, name string) (ControlInfo, bool) {
	for _, c := range controls {
		if c.Name == name {
			return c, true
		}
	}
	return ControlInfo{}, false
}

// AutomaticName returns the companion auto-mode control for name.
func AutomaticName(name string) string {
	return name + AutomaticSuffix
}

// IsAutomatic reports whether name is an auto-mode companion.
func IsAutomatic(name string) bool {
	return strings.HasSuffix(name, AutomaticSuffix)
}

// BaseName strips the auto-mode suffix.
func BaseName(name string) string {
	return strings.TrimSuffix(name, AutomaticSuffix)
}
