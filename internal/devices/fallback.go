package devices

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/logging"
	"github.com/smazurov/camctl/pkg/descriptor"
)

// DefaultMaxProbe is how many capture indices the fallback probes.
const DefaultMaxProbe = 10

// propertyRange is the fallback's assumed range for one capture property.
type propertyRange struct {
	name     string
	prop     int
	min, max int
	def      int
}

// fallbackRanges lists the properties read back from an open capture.
var fallbackRanges = []propertyRange{
	{"brightness", propBrightness, 0, 100, 50},
	{"contrast", propContrast, 0, 100, 50},
	{"saturation", propSaturation, 0, 100, 50},
	{"hue", propHue, -15, 15, 0},
	{"gain", propGain, 0, 100, 50},
	{"exposure", propExposure, -13, -1, -7},
	{"sharpness", propSharpness, 0, 100, 50},
	{"zoom", propZoom, 100, 400, 100},
}

// fallbackSetProps maps writable control names to capture properties.
var fallbackSetProps = map[string]int{
	"brightness":      propBrightness,
	"contrast":        propContrast,
	"saturation":      propSaturation,
	"hue":             propHue,
	"gain":            propGain,
	"exposure":        propExposure,
	"white_balance_u": propWhiteBalanceBlueU,
	"white_balance_v": propWhiteBalanceRedV,
	"gamma":           propGamma,
	"sharpness":       propSharpness,
	"backlight":       propBacklight,
}

// FallbackBackend reaches cameras through an OpenCV-style capture. Its
// ranges are assumptions, and controls it cannot read are reported from a
// synthetic table.
type FallbackBackend struct {
	newCapture CaptureFactory
	maxProbe   int
	logger     *slog.Logger
}

// NewFallbackBackend builds the fallback on the capture compiled into the
// binary.
func NewFallbackBackend(opts Options) *FallbackBackend {
	return NewFallbackBackendWithCapture(defaultCaptureFactory(opts.Quiet), opts.MaxProbe)
}

// NewFallbackBackendWithCapture builds the fallback on an explicit capture
// factory. maxProbe <= 0 means DefaultMaxProbe.
func NewFallbackBackendWithCapture(factory CaptureFactory, maxProbe int) *FallbackBackend {
	if maxProbe <= 0 {
		maxProbe = DefaultMaxProbe
	}
	return &FallbackBackend{
		newCapture: factory,
		maxProbe:   maxProbe,
		logger:     logging.GetLogger("devices"),
	}
}

// Name implements Backend.
func (b *FallbackBackend) Name() string { return "fallback" }

// open returns an opened capture or nil.
func (b *FallbackBackend) open(index int) Capture {
	c := b.newCapture()
	if c.Open(index) && c.IsOpened() {
		return c
	}
	_ = c.Release()
	return nil
}

// ListDevices probes capture indices 0..maxProbe-1.
func (b *FallbackBackend) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	devices := []DeviceInfo{}
	for i := 0; i < b.maxProbe; i++ {
		if err := ctx.Err(); err != nil {
			return devices, err
		}
		c := b.open(i)
		if c == nil {
			continue
		}
		width := int(c.Get(propFrameWidth))
		height := int(c.Get(propFrameHeight))
		fps := c.Get(propFPS)
		_ = c.Release()

		devices = append(devices, DeviceInfo{
			Index:       i,
			Name:        fmt.Sprintf("Video Device %d", i),
			Path:        strconv.Itoa(i),
			Description: fmt.Sprintf("Resolution: %dx%d, FPS: %g", width, height, fps),
		})
	}
	return devices, nil
}

var fallbackProbeSizes = []descriptor.Resolution{
	{Width: 160, Height: 120},
	{Width: 320, Height: 240},
	{Width: 640, Height: 480},
	{Width: 800, Height: 600},
	{Width: 1024, Height: 768},
	{Width: 1280, Height: 720},
	{Width: 1280, Height: 1024},
	{Width: 1600, Height: 1200},
	{Width: 1920, Height: 1080},
	{Width: 2560, Height: 1440},
	{Width: 3840, Height: 2160},
}

// GetFormats requests each common size and keeps those the capture accepts.
func (b *FallbackBackend) GetFormats(ctx context.Context, index int) ([]VideoFormat, error) {
	formats := []VideoFormat{}
	c := b.open(index)
	if c == nil {
		return formats, nil
	}
	defer func() { _ = c.Release() }()

	for _, size := range fallbackProbeSizes {
		if err := ctx.Err(); err != nil {
			return formats, err
		}
		c.Set(propFrameWidth, float64(size.Width))
		c.Set(propFrameHeight, float64(size.Height))
		if int(c.Get(propFrameWidth)) != int(size.Width) || int(c.Get(propFrameHeight)) != int(size.Height) {
			continue
		}

		fps := c.Get(propFPS)
		if fps <= 0 {
			fps = descriptor.DefaultFPS
		}
		pix := "UNKNOWN"
		if code := uint32(c.Get(propFourCC)); code != 0 {
			pix = descriptor.FourCC(code)
		}
		formats = append(formats, VideoFormat{
			Width:       int(size.Width),
			Height:      int(size.Height),
			FPS:         fps,
			PixelFormat: pix,
			Description: fmt.Sprintf("%dx%d", size.Width, size.Height),
		})
	}
	return formats, nil
}

// GetControls reads what the capture exposes and fills the rest from the
// synthetic table. A device that cannot be opened gets the full synthetic
// list.
func (b *FallbackBackend) GetControls(_ context.Context, index int) ([]ControlInfo, error) {
	c := b.open(index)
	if c == nil {
		b.logger.Debug("Capture not opened, reporting synthetic controls", "device", index)
		return SyntheticControls(), nil
	}
	defer func() { _ = c.Release() }()

	controls := make([]ControlInfo, 0, len(fallbackRanges)+len(syntheticExtras))
	for _, r := range fallbackRanges {
		controls = append(controls, ControlInfo{
			Name:    r.name,
			Min:     r.min,
			Max:     r.max,
			Step:    1,
			Default: r.def,
			Current: readbackValue(r, c.Get(r.prop)),
			Source:  SourceHardware,
		})
	}
	controls = append(controls, syntheticExtras...)
	return controls, nil
}

// readbackValue maps a raw property value into the range. Drivers report
// either native units, a 0..1 fraction, or -1 for "unset".
func readbackValue(r propertyRange, v float64) int {
	switch {
	case r.name == "hue" || r.name == "exposure":
		return int(v)
	case v == -1:
		return r.def
	case v >= 0 && v <= 1:
		return r.min + int(v*float64(r.max-r.min))
	default:
		return int(v)
	}
}

// SetControl writes a property. Values up to 100 are sent as a fraction.
func (b *FallbackBackend) SetControl(_ context.Context, index int, name string, value int) error {
	prop, ok := fallbackSetProps[name]
	if !ok {
		return deverr.Newf(deverr.KindControlNotSupported, "fallback cannot set %q", name)
	}

	c := b.open(index)
	if c == nil {
		return deverr.Newf(deverr.KindDeviceNotFound, "cannot open capture %d", index)
	}
	defer func() { _ = c.Release() }()

	v := float64(value)
	if value <= 100 {
		v /= 100
	}
	if !c.Set(prop, v) {
		return deverr.Newf(deverr.KindIO, "capture rejected %s=%d", name, value)
	}
	return nil
}

func synthetic(name string, lo, hi, def, cur int) ControlInfo {
	return ControlInfo{Name: name, Min: lo, Max: hi, Step: 1, Default: def, Current: cur, Source: SourceSynthetic}
}

func syntheticAuto(name string) ControlInfo {
	c := synthetic(name, 0, 1, 1, 1)
	c.AutoSupported = true
	return c
}

// syntheticExtras are reported next to the properties read from an open
// capture.
var syntheticExtras = []ControlInfo{
	synthetic("pan", -145, 145, 0, 0),
	synthetic("tilt", -90, 100, 0, 0),
	synthetic("roll", -100, 100, 0, 0),
	synthetic("focus", 0, 100, 50, 50),
	synthetic("whitebalance", 2000, 10000, 6400, 6400),
	syntheticAuto("whitebalance_automatic"),
	syntheticAuto("focus_automatic"),
}

// SyntheticControls is the control list reported for a device the fallback
// cannot open.
func SyntheticControls() []ControlInfo {
	return []ControlInfo{
		synthetic("brightness", 0, 100, 50, 50),
		synthetic("contrast", 0, 100, 50, 50),
		synthetic("saturation", 0, 100, 50, 50),
		synthetic("hue", -15, 15, 0, 0),
		synthetic("sharpness", 0, 100, 50, 98),
		synthetic("gain", 0, 100, 50, 0),
		synthetic("exposure", -13, -1, -7, -1),
		synthetic("whitebalance", 2000, 10000, 6400, 5500),
		synthetic("pan", -145, 145, 0, -143),
		synthetic("tilt", -90, 100, 0, -85),
		synthetic("roll", -100, 100, 0, -100),
		synthetic("zoom", 100, 400, 100, 100),
		synthetic("focus", 0, 100, 50, 94),
		syntheticAuto("whitebalance_automatic"),
		syntheticAuto("focus_automatic"),
	}
}
