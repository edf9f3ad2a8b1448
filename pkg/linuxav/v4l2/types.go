//go:build linux

package v4l2

import "github.com/smazurov/camctl/pkg/descriptor"

// DeviceInfo contains information about a V4L2 capture node.
type DeviceInfo struct {
	Index      int // N of /dev/videoN
	DevicePath string
	DeviceName string
	Driver     string
	BusInfo    string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// Mode is one supported (pixel format, size, frame rate) combination.
type Mode struct {
	PixelFormat uint32
	Description string
	Width       uint32
	Height      uint32
	FPS         float64
}

// FourCC returns the pixel format as text.
func (m Mode) FourCC() string {
	return descriptor.FourCC(m.PixelFormat)
}

// Buffer type.
const (
	bufTypeVideoCapture = 1
)

// Control classes.
const (
	cidBase            = 0x00980900
	cidCameraClassBase = 0x009a0900
)

// User class control IDs.
const (
	CIDBrightness            = cidBase + 0
	CIDContrast              = cidBase + 1
	CIDSaturation            = cidBase + 2
	CIDHue                   = cidBase + 3
	CIDAutoWhiteBalance      = cidBase + 12
	CIDRedBalance            = cidBase + 14
	CIDBlueBalance           = cidBase + 15
	CIDGamma                 = cidBase + 16
	CIDExposure              = cidBase + 17
	CIDAutogain              = cidBase + 18
	CIDGain                  = cidBase + 19
	CIDPowerLineFrequency    = cidBase + 24
	CIDWhiteBalanceTemp      = cidBase + 26
	CIDSharpness             = cidBase + 27
	CIDBacklightCompensation = cidBase + 28
	CIDAutobrightness        = cidBase + 32
)

// Camera class control IDs.
const (
	CIDExposureAuto     = cidCameraClassBase + 1
	CIDExposureAbsolute = cidCameraClassBase + 2
	CIDFocusAbsolute    = cidCameraClassBase + 10
	CIDFocusAuto        = cidCameraClassBase + 12
	CIDPanAbsolute      = cidCameraClassBase + 8
	CIDTiltAbsolute     = cidCameraClassBase + 9
	CIDZoomAbsolute     = cidCameraClassBase + 13
)

// V4L2_CID_EXPOSURE_AUTO menu values.
const (
	ExposureAuto             = 0
	ExposureManual           = 1
	ExposureShutterPriority  = 2
	ExposureAperturePriority = 3
)
