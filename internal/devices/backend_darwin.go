//go:build darwin

package devices

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/logging"
	"github.com/smazurov/camctl/pkg/descriptor"
)

const (
	avFoundationPath = "/System/Library/Frameworks/AVFoundation.framework/AVFoundation"
	coreMediaPath    = "/System/Library/Frameworks/CoreMedia.framework/CoreMedia"
)

// AVCaptureExposureMode, AVCaptureFocusMode and AVCaptureWhiteBalanceMode
// share these values.
const (
	avModeLocked     = 0
	avModeContinuous = 2
)

type avfKind int

const (
	avfUnit avfKind = iota // float 0.0-1.0
	avfBias                // float within [min, max] selectors
	avfZoom                // CGFloat factor from 1 to the format's max
)

// avfControl is a (capability, getter, setter) selector triple. An empty
// capability means respondsToSelector: on the getter decides.
type avfControl struct {
	name       string
	capability string
	capArg     int
	getter     string
	setter     string
	kind       avfKind
	minSel     string
	maxSel     string
	handler    bool   // setter takes a trailing completionHandler
	modeSel    string // auto mode setter, "" if none
	modeCheck  string
}

var avfControls = []avfControl{
	{name: "brightness", getter: "brightness", setter: "setBrightness:", kind: avfUnit},
	{name: "contrast", getter: "contrast", setter: "setContrast:", kind: avfUnit},
	{name: "saturation", getter: "saturation", setter: "setSaturation:", kind: avfUnit},
	{
		name: "exposure", capability: "isExposureModeSupported:", capArg: avModeLocked,
		getter: "exposureTargetBias", setter: "setExposureTargetBias:completionHandler:", kind: avfBias, handler: true,
		minSel: "minExposureTargetBias", maxSel: "maxExposureTargetBias",
		modeSel: "setExposureMode:", modeCheck: "isExposureModeSupported:",
	},
	{
		name: "focus", capability: "isFocusModeSupported:", capArg: avModeLocked,
		getter: "lensPosition", setter: "setFocusModeLockedWithLensPosition:completionHandler:", kind: avfUnit, handler: true,
		modeSel: "setFocusMode:", modeCheck: "isFocusModeSupported:",
	},
	{
		name: "white_balance", capability: "isWhiteBalanceModeSupported:", capArg: avModeLocked,
		modeSel: "setWhiteBalanceMode:", modeCheck: "isWhiteBalanceModeSupported:",
	},
	{name: "zoom", getter: "videoZoomFactor", setter: "setVideoZoomFactor:", kind: avfZoom},
}

// avf holds the loaded frameworks. All calls are serialized.
type avf struct {
	mu sync.Mutex

	classDevice objc.ID
	classPool   objc.ID
	mediaVideo  objc.ID

	getDimensions func(desc uintptr) uint64
	getSubType    func(desc uintptr) uint32
}

// DarwinBackend drives AVFoundation through the Objective-C runtime.
type DarwinBackend struct {
	av     *avf
	logger *slog.Logger
}

func newNativeBackend(_ Options) (Backend, error) {
	av, err := loadAVFoundation()
	if err != nil {
		return nil, deverr.New(deverr.KindDependencyMissing, "AVFoundation unavailable", err)
	}
	return &DarwinBackend{av: av, logger: logging.GetLogger("devices")}, nil
}

func loadAVFoundation() (*avf, error) {
	lib, err := purego.Dlopen(avFoundationPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("load AVFoundation: %w", err)
	}
	cm, err := purego.Dlopen(coreMediaPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("load CoreMedia: %w", err)
	}

	av := &avf{
		classDevice: objc.ID(objc.GetClass("AVCaptureDevice")),
		classPool:   objc.ID(objc.GetClass("NSAutoreleasePool")),
	}
	if av.classDevice == 0 {
		return nil, fmt.Errorf("AVCaptureDevice class not found")
	}

	sym, err := purego.Dlsym(lib, "AVMediaTypeVideo")
	if err != nil {
		return nil, fmt.Errorf("resolve AVMediaTypeVideo: %w", err)
	}
	av.mediaVideo = *(*objc.ID)(unsafe.Pointer(sym))

	purego.RegisterLibFunc(&av.getDimensions, cm, "CMVideoFormatDescriptionGetDimensions")
	purego.RegisterLibFunc(&av.getSubType, cm, "CMFormatDescriptionGetMediaSubType")
	return av, nil
}

var (
	selAlloc              = objc.RegisterName("alloc")
	selInit               = objc.RegisterName("init")
	selDrain              = objc.RegisterName("drain")
	selCount              = objc.RegisterName("count")
	selObjectAtIndex      = objc.RegisterName("objectAtIndex:")
	selUTF8String         = objc.RegisterName("UTF8String")
	selDevicesWithType    = objc.RegisterName("devicesWithMediaType:")
	selLocalizedName      = objc.RegisterName("localizedName")
	selUniqueID           = objc.RegisterName("uniqueID")
	selManufacturer       = objc.RegisterName("manufacturer")
	selFormats            = objc.RegisterName("formats")
	selFormatDescription  = objc.RegisterName("formatDescription")
	selFrameRateRanges    = objc.RegisterName("videoSupportedFrameRateRanges")
	selMinFrameRate       = objc.RegisterName("minFrameRate")
	selMaxFrameRate       = objc.RegisterName("maxFrameRate")
	selRespondsTo         = objc.RegisterName("respondsToSelector:")
	selLockForConfig      = objc.RegisterName("lockForConfiguration:")
	selUnlockForConfig    = objc.RegisterName("unlockForConfiguration")
	selActiveFormat       = objc.RegisterName("activeFormat")
	selVideoMaxZoomFactor = objc.RegisterName("videoMaxZoomFactor")
)

// session runs fn under the lock inside an autorelease pool.
func (a *avf) session(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	pool := a.classPool.Send(selAlloc).Send(selInit)
	defer pool.Send(selDrain)
	return fn()
}

func (a *avf) devices() []objc.ID {
	arr := a.classDevice.Send(selDevicesWithType, a.mediaVideo)
	return array(arr)
}

func (a *avf) device(index int) (objc.ID, error) {
	devs := a.devices()
	if index < 0 || index >= len(devs) {
		return 0, deverr.Newf(deverr.KindDeviceNotFound, "no AVCaptureDevice at index %d", index)
	}
	return devs[index], nil
}

func array(arr objc.ID) []objc.ID {
	if arr == 0 {
		return nil
	}
	n := objc.Send[uint](arr, selCount)
	out := make([]objc.ID, 0, n)
	for i := uint(0); i < n; i++ {
		out = append(out, arr.Send(selObjectAtIndex, i))
	}
	return out
}

func goString(s objc.ID) string {
	if s == 0 {
		return ""
	}
	p := objc.Send[unsafe.Pointer](s, selUTF8String)
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}

func responds(obj objc.ID, sel string) bool {
	return objc.Send[bool](obj, selRespondsTo, objc.RegisterName(sel))
}

// Name implements Backend.
func (b *DarwinBackend) Name() string { return "avfoundation" }

// ListDevices implements Backend.
func (b *DarwinBackend) ListDevices(_ context.Context) ([]DeviceInfo, error) {
	devices := []DeviceInfo{}
	err := b.av.session(func() error {
		for i, d := range b.av.devices() {
			manufacturer := "Apple"
			if responds(d, "manufacturer") {
				if m := goString(d.Send(selManufacturer)); m != "" {
					manufacturer = m
				}
			}
			devices = append(devices, DeviceInfo{
				Index:       i,
				Name:        goString(d.Send(selLocalizedName)),
				Path:        goString(d.Send(selUniqueID)),
				Description: "Manufacturer: " + manufacturer,
			})
		}
		return nil
	})
	return devices, err
}

// GetFormats reports CommonFrameRates within each supported frame-rate
// range of every format.
func (b *DarwinBackend) GetFormats(_ context.Context, index int) ([]VideoFormat, error) {
	formats := []VideoFormat{}
	err := b.av.session(func() error {
		dev, err := b.av.device(index)
		if err != nil {
			return err
		}
		fmts := array(dev.Send(selFormats))
		for i, f := range fmts {
			if i >= descriptor.MaxEnumIterations {
				break
			}
			desc := uintptr(f.Send(selFormatDescription))
			if desc == 0 {
				continue
			}
			dims := b.av.getDimensions(desc)
			width, height := int(int32(dims&0xffffffff)), int(int32(dims>>32))
			pix := descriptor.FourCC(descriptor.FourCCBigEndian(b.av.getSubType(desc)))

			for _, r := range array(f.Send(selFrameRateRanges)) {
				lo := objc.Send[float64](r, selMinFrameRate)
				hi := objc.Send[float64](r, selMaxFrameRate)
				for _, fps := range FrameRatesInRange(lo, hi) {
					formats = append(formats, VideoFormat{
						Width:       width,
						Height:      height,
						FPS:         fps,
						PixelFormat: pix,
						Description: fmt.Sprintf("%dx%d @ %.1ffps (%s)", width, height, fps, pix),
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return formats, nil
}

// GetControls implements Backend. Values are reported on a 0-100 scale.
func (b *DarwinBackend) GetControls(_ context.Context, index int) ([]ControlInfo, error) {
	controls := []ControlInfo{}
	err := b.av.session(func() error {
		dev, err := b.av.device(index)
		if err != nil {
			return err
		}
		for _, c := range avfControls {
			if !supported(dev, c) {
				continue
			}
			auto := c.modeCheck != "" && responds(dev, c.modeCheck) &&
				objc.Send[bool](dev, objc.RegisterName(c.modeCheck), avModeContinuous)

			ctrl := ControlInfo{
				Name: c.name, Min: 0, Max: 100, Step: 1, Default: 50,
				AutoSupported: auto,
				Description:   "AVFoundation " + c.name,
				Source:        SourceHardware,
			}
			if c.getter == "" {
				// mode-only control
				ctrl.Max, ctrl.Default = 1, 1
				if auto {
					ctrl.Current = 1
				}
			} else {
				ctrl.Current = readAVF(dev, c)
			}
			controls = append(controls, ctrl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return controls, nil
}

func supported(dev objc.ID, c avfControl) bool {
	if c.capability == "" {
		return responds(dev, c.getter)
	}
	if !responds(dev, c.capability) {
		return false
	}
	return objc.Send[bool](dev, objc.RegisterName(c.capability), c.capArg)
}

func readAVF(dev objc.ID, c avfControl) int {
	if !responds(dev, c.getter) {
		return 50
	}
	get := objc.RegisterName(c.getter)
	switch c.kind {
	case avfZoom:
		return ZoomPercent(objc.Send[float64](dev, get), maxZoom(dev))
	case avfBias:
		lo := objc.Send[float32](dev, objc.RegisterName(c.minSel))
		hi := objc.Send[float32](dev, objc.RegisterName(c.maxSel))
		if hi <= lo {
			return 50
		}
		v := objc.Send[float32](dev, get)
		return NormalizeUnit(float64((v - lo) / (hi - lo)))
	default:
		return NormalizeUnit(float64(objc.Send[float32](dev, get)))
	}
}

func maxZoom(dev objc.ID) float64 {
	format := dev.Send(selActiveFormat)
	if format == 0 {
		return 1
	}
	return objc.Send[float64](format, selVideoMaxZoomFactor)
}

// SetControl takes 0-100 values, or 0/1 for "<name>_automatic".
func (b *DarwinBackend) SetControl(_ context.Context, index int, name string, value int) error {
	var ctrl avfControl
	found := false
	for _, c := range avfControls {
		if c.name == BaseName(name) {
			ctrl, found = c, true
			break
		}
	}
	if !found {
		return deverr.Newf(deverr.KindControlNotSupported, "no AVFoundation control named %q", name)
	}
	auto := IsAutomatic(name)
	if !auto && (value < 0 || value > 100) {
		return deverr.Newf(deverr.KindControlOutOfRange, "%s=%d outside [0, 100]", name, value)
	}

	return b.av.session(func() error {
		dev, err := b.av.device(index)
		if err != nil {
			return err
		}

		sel := ctrl.setter
		if auto {
			sel = ctrl.modeSel
		}
		if sel == "" || !responds(dev, sel) {
			return deverr.Newf(deverr.KindControlNotSupported, "device %d cannot set %q", index, name)
		}

		if !objc.Send[bool](dev, selLockForConfig, uintptr(0)) {
			return deverr.Newf(deverr.KindDeviceBusy, "device %d refused configuration lock", index)
		}
		defer dev.Send(selUnlockForConfig)

		setter := objc.RegisterName(sel)
		if auto {
			mode := avModeLocked
			if value != 0 {
				mode = avModeContinuous
			}
			dev.Send(setter, mode)
			return nil
		}

		var arg any
		switch ctrl.kind {
		case avfZoom:
			arg = ZoomFactor(value, maxZoom(dev))
		case avfBias:
			lo := objc.Send[float32](dev, objc.RegisterName(ctrl.minSel))
			hi := objc.Send[float32](dev, objc.RegisterName(ctrl.maxSel))
			arg = lo + float32(DenormalizeUnit(value))*(hi-lo)
		default:
			arg = float32(DenormalizeUnit(value))
		}
		if ctrl.handler {
			dev.Send(setter, arg, uintptr(0))
		} else {
			dev.Send(setter, arg)
		}
		return nil
	})
}
