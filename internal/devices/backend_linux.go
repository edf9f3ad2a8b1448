//go:build linux

package devices

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/logging"
	"github.com/smazurov/camctl/pkg/descriptor"
	"github.com/smazurov/camctl/pkg/linuxav/v4l2"
)

type v4l2Control struct {
	name string
	id   uint32
	alt  uint32 // tried when id is not implemented

	// exposureMode controls are V4L2_CID_EXPOSURE_AUTO menus reported and
	// written as an on/off flag.
	exposureMode bool
}

// v4l2Catalog is the order controls are reported in.
var v4l2Catalog = []v4l2Control{
	{name: "brightness", id: v4l2.CIDBrightness},
	{name: "contrast", id: v4l2.CIDContrast},
	{name: "saturation", id: v4l2.CIDSaturation},
	{name: "hue", id: v4l2.CIDHue},
	{name: "gamma", id: v4l2.CIDGamma},
	{name: "gain", id: v4l2.CIDGain},
	{name: "exposure", id: v4l2.CIDExposure, alt: v4l2.CIDExposureAbsolute},
	{name: "white_balance", id: v4l2.CIDAutoWhiteBalance},
	{name: "red_balance", id: v4l2.CIDRedBalance},
	{name: "blue_balance", id: v4l2.CIDBlueBalance},
	{name: "white_balance_temperature", id: v4l2.CIDWhiteBalanceTemp},
	{name: "sharpness", id: v4l2.CIDSharpness},
	{name: "backlight_compensation", id: v4l2.CIDBacklightCompensation},
	{name: "exposure_auto", id: v4l2.CIDExposureAuto, exposureMode: true},
	{name: "focus", id: v4l2.CIDFocusAbsolute},
	{name: "focus_auto", id: v4l2.CIDFocusAuto},
	{name: "zoom", id: v4l2.CIDZoomAbsolute},
	{name: "pan", id: v4l2.CIDPanAbsolute},
	{name: "tilt", id: v4l2.CIDTiltAbsolute},
}

// v4l2AutoCompanions maps the base of a "<name>_automatic" control to the
// V4L2 control that switches its auto mode.
var v4l2AutoCompanions = map[string]uint32{
	"exposure":      v4l2.CIDExposureAuto,
	"focus":         v4l2.CIDFocusAuto,
	"white_balance": v4l2.CIDAutoWhiteBalance,
	"gain":          v4l2.CIDAutogain,
	"brightness":    v4l2.CIDAutobrightness,
}

// autoOwners lists the catalog controls whose auto mode a companion drives.
var autoOwners = map[string][]string{
	"exposure":      {"exposure"},
	"focus":         {"focus"},
	"white_balance": {"white_balance", "white_balance_temperature", "red_balance", "blue_balance"},
	"gain":          {"gain"},
	"brightness":    {"brightness"},
}

// LinuxBackend talks to V4L2 nodes with raw ioctls.
type LinuxBackend struct {
	logger *slog.Logger
}

func newNativeBackend(_ Options) (Backend, error) {
	return NewLinuxBackend(), nil
}

// NewLinuxBackend creates the V4L2 backend.
func NewLinuxBackend() *LinuxBackend {
	return &LinuxBackend{logger: logging.GetLogger("devices")}
}

// Name implements Backend.
func (b *LinuxBackend) Name() string { return "v4l2" }

// ListDevices returns the capture nodes, ordered by node number.
func (b *LinuxBackend) ListDevices(_ context.Context) ([]DeviceInfo, error) {
	nodes, err := v4l2.FindDevices()
	if err != nil {
		return nil, deverr.Wrap(err, "enumerate video4linux")
	}

	devices := make([]DeviceInfo, 0, len(nodes))
	for _, n := range nodes {
		devices = append(devices, DeviceInfo{
			Index:       n.Index,
			Name:        n.DeviceName,
			Path:        n.DevicePath,
			Description: fmt.Sprintf("%s (%s) %s", n.Driver, n.BusInfo, n.DeviceID),
		})
	}
	slices.SortFunc(devices, func(a, c DeviceInfo) int { return a.Index - c.Index })
	return devices, nil
}

func (b *LinuxBackend) open(index int) (*v4l2.Device, error) {
	path := v4l2.DevicePath(index)
	dev, err := v4l2.Open(path)
	if err != nil {
		return nil, deverr.Wrap(err, "open device").With("path", path)
	}
	return dev, nil
}

// GetFormats implements Backend.
func (b *LinuxBackend) GetFormats(_ context.Context, index int) ([]VideoFormat, error) {
	dev, err := b.open(index)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	modes, err := dev.Modes()
	if err != nil {
		return nil, deverr.Wrap(err, "enumerate formats")
	}

	formats := make([]VideoFormat, 0, len(modes))
	for _, m := range modes {
		formats = append(formats, VideoFormat{
			Width:       int(m.Width),
			Height:      int(m.Height),
			FPS:         m.FPS,
			PixelFormat: m.FourCC(),
			Description: m.Description,
		})
	}
	return formats, nil
}

// controlDevice is the part of *v4l2.Device control listing uses.
type controlDevice interface {
	QueryControl(id uint32) (descriptor.QueryControl, error)
	GetControl(id uint32) (int32, error)
}

// GetControls queries each catalog control and skips those the driver does
// not implement or marks disabled.
func (b *LinuxBackend) GetControls(_ context.Context, index int) ([]ControlInfo, error) {
	dev, err := b.open(index)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	return listV4L2Controls(dev, b.logger.With("device", index)), nil
}

func listV4L2Controls(dev controlDevice, logger *slog.Logger) []ControlInfo {
	controls := []ControlInfo{}
	for _, entry := range v4l2Catalog {
		q, ok := queryControl(dev, entry)
		if !ok {
			continue
		}
		current, err := dev.GetControl(q.ID)
		if err != nil {
			logger.Debug("Control read failed, reporting default", "control", entry.name, "error", err)
			current = q.Default
		}
		info := ControlInfo{
			Name:          entry.name,
			Min:           int(q.Minimum),
			Max:           int(q.Maximum),
			Step:          int(q.Step),
			Default:       int(q.Default),
			Current:       int(current),
			Flags:         q.Flags,
			AutoSupported: q.Type == descriptor.ControlTypeBoolean,
			Description:   q.Name,
			Source:        SourceHardware,
		}
		if entry.exposureMode {
			info.Min, info.Max, info.Step = 0, 1, 1
			info.Default = exposureAutoFlag(q.Default)
			info.Current = exposureAutoFlag(current)
		}
		controls = append(controls, info)
	}

	markAutoOwners(controls, func(id uint32) bool {
		q, err := dev.QueryControl(id)
		return err == nil && !q.Disabled()
	})
	return controls
}

// markAutoOwners sets AutoSupported on every control whose auto companion
// the device implements.
func markAutoOwners(controls []ControlInfo, implemented func(id uint32) bool) {
	for base, id := range v4l2AutoCompanions {
		if !implemented(id) {
			continue
		}
		for i := range controls {
			if slices.Contains(autoOwners[base], controls[i].Name) {
				controls[i].AutoSupported = true
			}
		}
	}
}

func queryControl(dev controlDevice, entry v4l2Control) (descriptor.QueryControl, bool) {
	for _, id := range []uint32{entry.id, entry.alt} {
		if id == 0 {
			continue
		}
		q, err := dev.QueryControl(id)
		if err != nil || q.Disabled() {
			continue
		}
		return q, true
	}
	return descriptor.QueryControl{}, false
}

// exposureAutoFlag reports any mode other than manual as on.
func exposureAutoFlag(mode int32) int {
	if mode == v4l2.ExposureManual {
		return 0
	}
	return 1
}

// exposureModeValue maps an on/off flag to the V4L2 exposure mode.
func exposureModeValue(flag int) int32 {
	if flag != 0 {
		return v4l2.ExposureAperturePriority
	}
	return v4l2.ExposureManual
}

// SetControl writes a catalog control or a "<name>_automatic" companion.
func (b *LinuxBackend) SetControl(_ context.Context, index int, name string, value int) error {
	id, v, ok := resolveV4L2Control(name, value)
	if !ok {
		return deverr.Newf(deverr.KindControlNotSupported, "no V4L2 control named %q", name)
	}

	dev, err := b.open(index)
	if err != nil {
		return err
	}
	defer dev.Close()

	if name == "exposure" {
		if q, ok := queryControl(dev, v4l2Control{id: v4l2.CIDExposure, alt: v4l2.CIDExposureAbsolute}); ok {
			id = q.ID
		}
	}

	if err := dev.SetControl(id, v); err != nil {
		return deverr.Wrap(err, fmt.Sprintf("set %s=%d", name, value)).
			With("device", index).With("control", name)
	}
	return nil
}

// resolveV4L2Control maps a control name and value to the V4L2 id and the
// value to write.
func resolveV4L2Control(name string, value int) (uint32, int32, bool) {
	if IsAutomatic(name) {
		base := BaseName(name)
		id, ok := v4l2AutoCompanions[base]
		if !ok {
			return 0, 0, false
		}
		if base == "exposure" {
			return id, exposureModeValue(value), true
		}
		if value != 0 {
			value = 1
		}
		return id, int32(value), true
	}

	for _, entry := range v4l2Catalog {
		if entry.name == name {
			if entry.exposureMode {
				return entry.id, exposureModeValue(value), true
			}
			return entry.id, int32(value), true
		}
	}
	return 0, 0, false
}
