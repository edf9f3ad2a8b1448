package descriptor

import (
	"encoding/binary"
	"fmt"
)

// Fixed V4L2 structure sizes (identical on 32- and 64-bit kernels).
const (
	CapabilitySize    = 104
	FormatDescSize    = 64
	FrameSizeSize     = 44
	FrameIntervalSize = 52
	QueryControlSize  = 68
	ControlSize       = 8
)

// MaxEnumIterations caps every enumeration loop so a driver that never
// reports EINVAL cannot spin forever.
const MaxEnumIterations = 256

// Capability flags.
const (
	CapVideoCapture = 0x00000001
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Frame size types.
const (
	FrameSizeDiscrete   = 1
	FrameSizeContinuous = 2
	FrameSizeStepwise   = 3
)

// Frame interval types.
const (
	FrameIntervalDiscrete   = 1
	FrameIntervalContinuous = 2
	FrameIntervalStepwise   = 3
)

// Control types.
const (
	ControlTypeInteger = 1
	ControlTypeBoolean = 2
	ControlTypeMenu    = 3
	ControlTypeButton  = 4
)

// Control flags.
const (
	ControlFlagDisabled = 0x0001
	ControlFlagGrabbed  = 0x0002
	ControlFlagReadOnly = 0x0004
	ControlFlagInactive = 0x0010
)

// DefaultFPS is reported when a device exposes no discrete interval.
const DefaultFPS = 30.0

// Capability is a decoded v4l2_capability.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// EffectiveCaps returns the per-node capabilities when the driver reports them.
func (c Capability) EffectiveCaps() uint32 {
	if c.Capabilities&CapDeviceCaps != 0 {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// IsCapture reports whether the node can capture video.
func (c Capability) IsCapture() bool {
	return c.EffectiveCaps()&CapVideoCapture != 0
}

// DecodeCapability decodes a VIDIOC_QUERYCAP buffer.
func DecodeCapability(buf []byte) (Capability, error) {
	var c Capability
	r := NewReader(buf)
	var err error
	if c.Driver, err = r.CString(16); err != nil {
		return c, err
	}
	if c.Card, err = r.CString(32); err != nil {
		return c, err
	}
	if c.BusInfo, err = r.CString(32); err != nil {
		return c, err
	}
	if err := r.fields(&c.Version, &c.Capabilities, &c.DeviceCaps); err != nil {
		return c, err
	}
	return c, nil
}

// FormatDesc is a decoded v4l2_fmtdesc.
type FormatDesc struct {
	Index       uint32
	Type        uint32
	Flags       uint32
	Description string
	PixelFormat uint32
}

// FormatDescRequest builds a VIDIOC_ENUM_FMT request buffer.
func FormatDescRequest(index, bufType uint32) []byte {
	b := make([]byte, FormatDescSize)
	put32(b, 0, index)
	put32(b, 4, bufType)
	return b
}

// DecodeFormatDesc decodes a VIDIOC_ENUM_FMT buffer.
func DecodeFormatDesc(buf []byte) (FormatDesc, error) {
	var f FormatDesc
	r := NewReader(buf)
	if err := r.fields(&f.Index, &f.Type, &f.Flags); err != nil {
		return f, err
	}
	var err error
	if f.Description, err = r.CString(32); err != nil {
		return f, err
	}
	if f.PixelFormat, err = r.Uint32(); err != nil {
		return f, err
	}
	return f, nil
}

// Resolution is a width/height pair.
type Resolution struct {
	Width  uint32
	Height uint32
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// CommonResolutions are tested against range-described frame sizes instead
// of expanding the whole range.
var CommonResolutions = []Resolution{
	{640, 480},
	{800, 600},
	{1024, 768},
	{1280, 720},
	{1920, 1080},
}

// FallbackResolution is reported when a format exposes no sizes at all.
var FallbackResolution = Resolution{640, 480}

// FrameSize is a decoded v4l2_frmsizeenum.
type FrameSize struct {
	Index       uint32
	PixelFormat uint32
	Type        uint32

	// Discrete
	Width  uint32
	Height uint32

	// Continuous / stepwise
	MinWidth   uint32
	MaxWidth   uint32
	StepWidth  uint32
	MinHeight  uint32
	MaxHeight  uint32
	StepHeight uint32
}

// FrameSizeRequest builds a VIDIOC_ENUM_FRAMESIZES request buffer.
func FrameSizeRequest(index, pixelFormat uint32) []byte {
	b := make([]byte, FrameSizeSize)
	put32(b, 0, index)
	put32(b, 4, pixelFormat)
	return b
}

// DecodeFrameSize decodes a VIDIOC_ENUM_FRAMESIZES buffer.
func DecodeFrameSize(buf []byte) (FrameSize, error) {
	var f FrameSize
	r := NewReader(buf)
	if err := r.fields(&f.Index, &f.PixelFormat, &f.Type); err != nil {
		return f, err
	}
	switch f.Type {
	case FrameSizeDiscrete:
		if err := r.fields(&f.Width, &f.Height); err != nil {
			return f, err
		}
	case FrameSizeContinuous, FrameSizeStepwise:
		if err := r.fields(&f.MinWidth, &f.MaxWidth, &f.StepWidth,
			&f.MinHeight, &f.MaxHeight, &f.StepHeight); err != nil {
			return f, err
		}
	default:
		return f, fmt.Errorf("descriptor: unknown frame size type %d", f.Type)
	}
	return f, nil
}

// Resolutions returns the sizes this entry describes: the discrete pair, or
// the common resolutions that fall within the range.
func (f FrameSize) Resolutions() []Resolution {
	if f.Type == FrameSizeDiscrete {
		return []Resolution{{f.Width, f.Height}}
	}
	return FilterCandidates(f.MinWidth, f.MaxWidth, f.MinHeight, f.MaxHeight)
}

// FilterCandidates keeps the common resolutions within the given bounds on
// both axes.
func FilterCandidates(minW, maxW, minH, maxH uint32) []Resolution {
	var out []Resolution
	for _, c := range CommonResolutions {
		if c.Width >= minW && c.Width <= maxW && c.Height >= minH && c.Height <= maxH {
			out = append(out, c)
		}
	}
	return out
}

// FrameInterval is a decoded v4l2_frmivalenum.
type FrameInterval struct {
	Index       uint32
	PixelFormat uint32
	Width       uint32
	Height      uint32
	Type        uint32
	Numerator   uint32
	Denominator uint32
}

// FrameIntervalRequest builds a VIDIOC_ENUM_FRAMEINTERVALS request buffer.
func FrameIntervalRequest(index, pixelFormat, width, height uint32) []byte {
	b := make([]byte, FrameIntervalSize)
	put32(b, 0, index)
	put32(b, 4, pixelFormat)
	put32(b, 8, width)
	put32(b, 12, height)
	return b
}

// DecodeFrameInterval decodes a VIDIOC_ENUM_FRAMEINTERVALS buffer.
// Only discrete intervals carry a fraction; other types decode with zero
// numerator and denominator.
func DecodeFrameInterval(buf []byte) (FrameInterval, error) {
	var f FrameInterval
	r := NewReader(buf)
	if err := r.fields(&f.Index, &f.PixelFormat, &f.Width, &f.Height, &f.Type); err != nil {
		return f, err
	}
	if f.Type == FrameIntervalDiscrete {
		if err := r.fields(&f.Numerator, &f.Denominator); err != nil {
			return f, err
		}
	}
	return f, nil
}

// FPS converts the interval to frames per second. ok is false for
// non-discrete intervals and for zero fractions.
func (f FrameInterval) FPS() (fps float64, ok bool) {
	if f.Type != FrameIntervalDiscrete || f.Numerator == 0 || f.Denominator == 0 {
		return 0, false
	}
	return float64(f.Denominator) / float64(f.Numerator), true
}

// QueryControl is a decoded v4l2_queryctrl.
type QueryControl struct {
	ID      uint32
	Type    uint32
	Name    string
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
	Flags   uint32
}

// Disabled reports whether the driver marked the control unusable.
func (q QueryControl) Disabled() bool {
	return q.Flags&ControlFlagDisabled != 0
}

// QueryControlRequest builds a VIDIOC_QUERYCTRL request buffer.
func QueryControlRequest(id uint32) []byte {
	b := make([]byte, QueryControlSize)
	put32(b, 0, id)
	return b
}

// DecodeQueryControl decodes a VIDIOC_QUERYCTRL buffer. Values are copied
// verbatim; no clamping or defaulting is applied.
func DecodeQueryControl(buf []byte) (QueryControl, error) {
	var q QueryControl
	r := NewReader(buf)
	if err := r.fields(&q.ID, &q.Type); err != nil {
		return q, err
	}
	var err error
	if q.Name, err = r.CString(32); err != nil {
		return q, err
	}
	if err := r.fields(&q.Minimum, &q.Maximum, &q.Step, &q.Default, &q.Flags); err != nil {
		return q, err
	}
	return q, nil
}

// Control is a v4l2_control id/value pair.
type Control struct {
	ID    uint32
	Value int32
}

// EncodeControl builds a VIDIOC_G_CTRL / VIDIOC_S_CTRL buffer.
func EncodeControl(c Control) []byte {
	b := make([]byte, ControlSize)
	put32(b, 0, c.ID)
	put32(b, 4, uint32(c.Value))
	return b
}

// DecodeControl decodes a VIDIOC_G_CTRL buffer.
func DecodeControl(buf []byte) (Control, error) {
	var c Control
	r := NewReader(buf)
	if err := r.fields(&c.ID, &c.Value); err != nil {
		return c, err
	}
	return c, nil
}

func put32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}
