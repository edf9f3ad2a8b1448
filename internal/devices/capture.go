package devices

import "math"

// Capture is the slice of an OpenCV-style VideoCapture the fallback backend
// needs. Property ids are the OpenCV CAP_PROP_* numbers. Set reports
// whether the driver took the value.
type Capture interface {
	Open(index int) bool
	IsOpened() bool
	Get(prop int) float64
	Set(prop int, value float64) bool
	Release() error
}

// CaptureFactory returns a fresh, unopened capture.
type CaptureFactory func() Capture

// readbackMatches reports whether a property read back after a write holds
// the written value, allowing 1% for drivers that round to their step.
func readbackMatches(want, got float64) bool {
	tolerance := max(math.Abs(want), 1) * 0.01
	return math.Abs(got-want) <= tolerance
}

// OpenCV CAP_PROP_* ids.
const (
	propFrameWidth        = 3
	propFrameHeight       = 4
	propFPS               = 5
	propFourCC            = 6
	propBrightness        = 10
	propContrast          = 11
	propSaturation        = 12
	propHue               = 13
	propGain              = 14
	propExposure          = 15
	propWhiteBalanceBlueU = 17
	propSharpness         = 20
	propAutoExposure      = 21
	propGamma             = 22
	propWhiteBalanceRedV  = 26
	propZoom              = 27
	propFocus             = 28
	propBacklight         = 32
	propPan               = 33
	propTilt              = 34
	propRoll              = 35
	propAutofocus         = 39
	propAutoWB            = 44
	propWBTemperature     = 45
)
