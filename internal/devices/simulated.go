package devices

import "math/rand/v2"

// simulatedRange is the DirectShow-typical range for one control.
type simulatedRange struct {
	name          string
	min, max      int
	step, def     int
	autoSupported bool
}

var simulatedRanges = []simulatedRange{
	{"brightness", -64, 64, 1, 0, false},
	{"contrast", 0, 100, 1, 50, false},
	{"hue", -180, 180, 1, 0, false},
	{"saturation", 0, 100, 1, 64, false},
	{"sharpness", 0, 100, 1, 50, false},
	{"gamma", 72, 500, 1, 100, false},
	{whiteBalanceTemperature, 2800, 6500, 10, 4600, true},
	{"backlight_compensation", 0, 2, 1, 1, false},
	{"gain", 0, 100, 1, 0, false},
	{"pan", -180, 180, 1, 0, false},
	{"tilt", -180, 180, 1, 0, false},
	{"zoom", 100, 500, 1, 100, false},
	{"exposure", -13, -1, 1, -6, true},
	{"focus", 0, 250, 5, 0, true},
}

// SimulatedControls returns stand-in controls for a device whose native
// control interfaces could not be reached. Values are pseudo-random but
// fixed for a given index.
func SimulatedControls(index int) []ControlInfo {
	rng := rand.New(rand.NewPCG(uint64(index), 0x63616d63746c))

	controls := make([]ControlInfo, 0, len(simulatedRanges)+1)
	for _, r := range simulatedRanges {
		steps := (r.max - r.min) / r.step
		c := ControlInfo{
			Name:          r.name,
			Min:           r.min,
			Max:           r.max,
			Step:          r.step,
			Default:       r.def,
			Current:       r.min + rng.IntN(steps+1)*r.step,
			AutoSupported: r.autoSupported,
			Source:        SourceSimulated,
		}
		controls = append(controls, c)
		if r.name == whiteBalanceTemperature {
			controls = append(controls, whiteBalanceModeControl(c, false))
		}
	}
	return controls
}
