//go:build windows

package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/logging"
	"github.com/smazurov/camctl/pkg/descriptor"
)

type dshowInterface int

const (
	ifaceProcAmp dshowInterface = iota
	ifaceCamera
)

type dshowProperty struct {
	name  string
	iface dshowInterface
	prop  int32
}

// dshowProperties lists VideoProcAmp (0-9) then CameraControl (0-6)
// properties in report order.
var dshowProperties = []dshowProperty{
	{"brightness", ifaceProcAmp, 0},
	{"contrast", ifaceProcAmp, 1},
	{"hue", ifaceProcAmp, 2},
	{"saturation", ifaceProcAmp, 3},
	{"sharpness", ifaceProcAmp, 4},
	{"gamma", ifaceProcAmp, 5},
	{"color_enable", ifaceProcAmp, 6},
	{whiteBalanceTemperature, ifaceProcAmp, 7},
	{"backlight_compensation", ifaceProcAmp, 8},
	{"gain", ifaceProcAmp, 9},
	{"pan", ifaceCamera, 0},
	{"tilt", ifaceCamera, 1},
	{"roll", ifaceCamera, 2},
	{"zoom", ifaceCamera, 3},
	{"exposure", ifaceCamera, 4},
	{"iris", ifaceCamera, 5},
	{"focus", ifaceCamera, 6},
}

func lookupDShowProperty(name string) (dshowProperty, bool) {
	for _, p := range dshowProperties {
		if p.name == name {
			return p, true
		}
	}
	return dshowProperty{}, false
}

// WindowsBackend uses Media Foundation for discovery and formats, and the
// DirectShow control interfaces exposed by the media source for controls.
type WindowsBackend struct {
	logger *slog.Logger
}

func newNativeBackend(_ Options) (Backend, error) {
	if err := procMFEnumDeviceSources.Find(); err != nil {
		return nil, deverr.New(deverr.KindDependencyMissing, "Media Foundation unavailable", err)
	}
	return &WindowsBackend{logger: logging.GetLogger("devices")}, nil
}

// Name implements Backend.
func (b *WindowsBackend) Name() string { return "dshow" }

// ListDevices asks Media Foundation first and WMI second.
func (b *WindowsBackend) ListDevices(_ context.Context) ([]DeviceInfo, error) {
	var devices []DeviceInfo
	err := withCOM(func() error {
		sources, release, err := enumerateVideoSources()
		defer release()
		if err != nil {
			return err
		}
		for i, s := range sources {
			devices = append(devices, DeviceInfo{
				Index:       i,
				Name:        s.name,
				Path:        s.link,
				Description: "Media Foundation video source",
			})
		}
		return nil
	})
	if err == nil && len(devices) > 0 {
		return devices, nil
	}
	if err != nil {
		b.logger.Debug("Media Foundation enumeration failed, trying WMI", "error", err)
	}

	devices, werr := wmiCameras()
	if werr != nil {
		if err != nil {
			return nil, deverr.New(deverr.KindIO, "enumerate video sources", fmt.Errorf("%w; %w", err, werr))
		}
		return nil, deverr.New(deverr.KindIO, "enumerate video sources", werr)
	}
	return devices, nil
}

// GetFormats walks the native media types of the first video stream.
func (b *WindowsBackend) GetFormats(_ context.Context, index int) ([]VideoFormat, error) {
	formats := []VideoFormat{}
	err := withCOM(func() error {
		src, err := openSource(index)
		if err != nil {
			return err
		}
		defer src.close()

		reader, err := newSourceReader(src)
		if err != nil {
			return err
		}
		defer reader.release()

		seen := make(map[VideoFormat]bool)
		for i := uint32(0); i < descriptor.MaxEnumIterations; i++ {
			mt, err := reader.nativeMediaType(mfSourceReaderFirstVideoStream, i)
			if err != nil {
				break // MF_E_NO_MORE_TYPES
			}
			raw, err := mt.videoInfo()
			mt.release()
			if err != nil {
				continue
			}
			vi, err := descriptor.DecodeVideoInfoHeader(raw)
			if err != nil {
				continue
			}
			f := VideoFormat{
				Width:       int(vi.Width),
				Height:      int(vi.Height),
				FPS:         vi.FPS(),
				PixelFormat: vi.PixelFormat(),
			}
			f.Description = fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.PixelFormat)
			if !seen[f] {
				seen[f] = true
				formats = append(formats, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, sourceError(err, index)
	}
	return formats, nil
}

// GetControls reads both control interfaces. When neither can be reached
// the device gets simulated controls.
func (b *WindowsBackend) GetControls(_ context.Context, index int) ([]ControlInfo, error) {
	var controls []ControlInfo
	err := withCOM(func() error {
		src, err := openSource(index)
		if err != nil {
			return err
		}
		defer src.close()

		ifaces := b.interfaces(src)
		defer ifaces.release()

		for _, p := range dshowProperties {
			ctl := ifaces.get(p.iface)
			if ctl == nil {
				continue
			}
			lo, hi, step, def, caps, err := ctl.getRange(p.prop)
			if err != nil {
				continue
			}
			cur, flags, err := ctl.get(p.prop)
			if err != nil {
				cur = def
			}
			info := ControlInfo{
				Name:          p.name,
				Min:           int(lo),
				Max:           int(hi),
				Step:          int(step),
				Default:       int(def),
				Current:       int(cur),
				Flags:         uint32(flags),
				AutoSupported: caps&dshowFlagAuto != 0,
				Source:        SourceHardware,
			}
			controls = append(controls, info)
			if p.name == whiteBalanceTemperature && info.AutoSupported {
				controls = append(controls, whiteBalanceModeControl(info, flags&dshowFlagAuto != 0))
			}
		}
		return nil
	})
	if err != nil || len(controls) == 0 {
		b.logger.Debug("DirectShow controls unavailable, simulating", "device", index, "error", err)
		return SimulatedControls(index), nil
	}
	return controls, nil
}

// SetControl writes a property in manual mode, or switches the auto flag for
// a "<name>_automatic" companion. white_balance switches the auto flag of
// the color temperature.
func (b *WindowsBackend) SetControl(_ context.Context, index int, name string, value int) error {
	target, auto := whiteBalanceTarget(name)
	p, ok := lookupDShowProperty(target)
	if !ok {
		return deverr.Newf(deverr.KindControlNotSupported, "no DirectShow property named %q", name)
	}

	err := withCOM(func() error {
		src, err := openSource(index)
		if err != nil {
			return err
		}
		defer src.close()

		ifaces := b.interfaces(src)
		defer ifaces.release()
		ctl := ifaces.get(p.iface)
		if ctl == nil {
			return deverr.Newf(deverr.KindControlNotSupported, "device %d has no interface for %q", index, name)
		}

		lo, hi, _, _, caps, err := ctl.getRange(p.prop)
		if err != nil {
			return err
		}

		if auto {
			if caps&dshowFlagAuto == 0 {
				return deverr.Newf(deverr.KindControlNotSupported, "%s has no auto mode", p.name)
			}
			cur, _, err := ctl.get(p.prop)
			if err != nil {
				return err
			}
			flag := int32(dshowFlagManual)
			if value != 0 {
				flag = dshowFlagAuto
			}
			return ctl.set(p.prop, cur, flag)
		}

		if value < int(lo) || value > int(hi) {
			return deverr.Newf(deverr.KindControlOutOfRange, "%s=%d outside [%d, %d]", name, value, lo, hi)
		}
		return ctl.set(p.prop, int32(value), dshowFlagManual)
	})
	if err != nil {
		return sourceError(err, index).With("control", name)
	}
	return nil
}

type dshowInterfaces struct {
	procAmp *amControl
	camera  *amControl
}

func (b *WindowsBackend) interfaces(src *mfMediaSource) dshowInterfaces {
	var out dshowInterfaces
	var err error
	if out.procAmp, err = src.procAmp(); err != nil {
		b.logger.Debug("IAMVideoProcAmp not exposed", "error", err)
	}
	if out.camera, err = src.cameraControl(); err != nil {
		b.logger.Debug("IAMCameraControl not exposed", "error", err)
	}
	return out
}

func (d dshowInterfaces) get(i dshowInterface) *amControl {
	if i == ifaceCamera {
		return d.camera
	}
	return d.procAmp
}

func (d dshowInterfaces) release() {
	if d.procAmp != nil {
		d.procAmp.release()
	}
	if d.camera != nil {
		d.camera.release()
	}
}

// sourceError classifies a COM failure.
func sourceError(err error, index int) *deverr.Error {
	var de *deverr.Error
	if errors.As(err, &de) {
		return de.With("device", index)
	}
	kind := deverr.KindIO
	if isPropUnsupported(err) {
		kind = deverr.KindControlNotSupported
	}
	return deverr.New(kind, fmt.Sprintf("device %d", index), err).With("device", index)
}
