package devices

import (
	"context"
	"slices"
	"sync"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/pkg/descriptor"
)

// MemoryDevice is one in-memory camera.
type MemoryDevice struct {
	Info     DeviceInfo
	Formats  []VideoFormat
	Controls []ControlInfo
}

// MemoryBackend keeps devices in memory. Writes are range-checked the way a
// driver would, and companion "_automatic" controls toggle a per-control auto
// flag. It backs tests and the demo mode.
type MemoryBackend struct {
	mu      sync.Mutex
	devices map[int]*MemoryDevice
	auto    map[int]map[string]bool
}

// NewMemoryBackend creates a backend serving copies of the given devices,
// keyed by Info.Index.
func NewMemoryBackend(devs ...MemoryDevice) *MemoryBackend {
	b := &MemoryBackend{
		devices: make(map[int]*MemoryDevice),
		auto:    make(map[int]map[string]bool),
	}
	for _, d := range devs {
		dev := MemoryDevice{
			Info:     d.Info,
			Formats:  slices.Clone(d.Formats),
			Controls: slices.Clone(d.Controls),
		}
		b.devices[d.Info.Index] = &dev
		b.auto[d.Info.Index] = make(map[string]bool)
	}
	return b
}

// Name implements Backend.
func (b *MemoryBackend) Name() string { return "memory" }

// ListDevices implements Backend.
func (b *MemoryBackend) ListDevices(_ context.Context) ([]DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]DeviceInfo, 0, len(b.devices))
	for _, d := range b.devices {
		out = append(out, d.Info)
	}
	slices.SortFunc(out, func(a, c DeviceInfo) int { return a.Index - c.Index })
	return out, nil
}

// GetFormats implements Backend.
func (b *MemoryBackend) GetFormats(_ context.Context, index int) ([]VideoFormat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.device(index)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.Formats), nil
}

// GetControls implements Backend.
func (b *MemoryBackend) GetControls(_ context.Context, index int) ([]ControlInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.device(index)
	if err != nil {
		return nil, err
	}
	return slices.Clone(d.Controls), nil
}

// SetControl implements Backend.
func (b *MemoryBackend) SetControl(_ context.Context, index int, name string, value int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.device(index)
	if err != nil {
		return err
	}

	for i := range d.Controls {
		ctrl := &d.Controls[i]
		if ctrl.Name != name {
			continue
		}
		if ctrl.Flags&descriptor.ControlFlagReadOnly != 0 {
			return deverr.Newf(deverr.KindControlReadOnly, "%s is read-only", name)
		}
		if !ctrl.InRange(value) {
			return deverr.Newf(deverr.KindControlOutOfRange, "%s=%d outside [%d, %d]", name, value, ctrl.Min, ctrl.Max)
		}
		ctrl.Current = value
		return nil
	}

	if IsAutomatic(name) {
		base, ok := FindControl(d.Controls, BaseName(name))
		if ok && base.AutoSupported {
			b.auto[index][base.Name] = value != 0
			return nil
		}
	}
	return deverr.Newf(deverr.KindControlNotSupported, "device %d has no control %q", index, name)
}

// Auto reports the auto flag last written through a companion control.
func (b *MemoryBackend) Auto(index int, name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.auto[index][name]
}

func (b *MemoryBackend) device(index int) (*MemoryDevice, error) {
	d, ok := b.devices[index]
	if !ok {
		return nil, deverr.Newf(deverr.KindDeviceNotFound, "no device at index %d", index)
	}
	return d, nil
}

// DemoDevices returns two plausible cameras for demos and tests.
func DemoDevices() []MemoryDevice {
	webcamFormats := []VideoFormat{}
	for _, pix := range []struct{ fourcc, desc string }{
		{"MJPG", "Motion-JPEG"},
		{"YUYV", "YUYV 4:2:2"},
	} {
		for _, size := range descriptor.CommonResolutions {
			for _, fps := range []float64{30, 15} {
				webcamFormats = append(webcamFormats, VideoFormat{
					Width:       int(size.Width),
					Height:      int(size.Height),
					FPS:         fps,
					PixelFormat: pix.fourcc,
					Description: pix.desc,
				})
			}
		}
	}

	hw := func(name string, lo, hi, step, def, cur int, auto bool) ControlInfo {
		return ControlInfo{
			Name: name, Min: lo, Max: hi, Step: step, Default: def, Current: cur,
			AutoSupported: auto, Source: SourceHardware,
		}
	}

	return []MemoryDevice{
		{
			Info: DeviceInfo{
				Index:       0,
				Name:        "Demo USB Webcam HD",
				Path:        "/dev/video0",
				Description: "memory backend",
			},
			Formats: webcamFormats,
			Controls: []ControlInfo{
				hw("brightness", 0, 255, 1, 128, 128, true),
				hw("contrast", 0, 255, 1, 128, 128, true),
				hw("saturation", 0, 255, 1, 128, 128, true),
				hw("hue", -180, 180, 1, 0, 0, false),
				hw("gain", 0, 255, 1, 0, 0, true),
				hw("exposure", 3, 2047, 1, 250, 250, true),
				hw("exposure_auto", 0, 1, 1, 1, 1, false),
				hw("sharpness", 0, 255, 1, 128, 128, false),
				hw("gamma", 72, 500, 1, 100, 100, false),
				hw("focus", 0, 250, 5, 0, 0, true),
				hw("focus_auto", 0, 1, 1, 1, 1, false),
				hw("zoom", 100, 500, 1, 100, 100, false),
				hw("pan", -36000, 36000, 3600, 0, 0, false),
				hw("tilt", -36000, 36000, 3600, 0, 0, false),
				hw("white_balance", 0, 5, 1, 0, 0, true),
				hw("white_balance_temperature", 2000, 6500, 1, 4000, 4000, false),
				hw("backlight_compensation", 0, 1, 1, 0, 0, false),
			},
		},
		{
			Info: DeviceInfo{
				Index:       1,
				Name:        "Demo HDMI Capture",
				Path:        "/dev/video1",
				Description: "memory backend",
			},
			Formats: []VideoFormat{
				{Width: 1920, Height: 1080, FPS: 60, PixelFormat: "NV12", Description: "Y/CbCr 4:2:0"},
				{Width: 1920, Height: 1080, FPS: 30, PixelFormat: "NV12", Description: "Y/CbCr 4:2:0"},
			},
			Controls: []ControlInfo{
				hw("brightness", -128, 127, 1, 0, 0, false),
				hw("contrast", 0, 255, 1, 128, 128, false),
			},
		},
	}
}
