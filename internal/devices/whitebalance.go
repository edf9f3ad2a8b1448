package devices

// Kelvin white balance is reported as a range control, and its auto flag as
// a separate mode-only entry so the manager can gate the temperature on it.
const (
	whiteBalanceMode        = "white_balance"
	whiteBalanceTemperature = "white_balance_temperature"
)

// whiteBalanceModeControl is the mode-only entry for a kelvin control:
// 1 when the device balances automatically, 0 when it is manual.
func whiteBalanceModeControl(temperature ControlInfo, autoActive bool) ControlInfo {
	c := ControlInfo{
		Name:          whiteBalanceMode,
		Min:           0,
		Max:           1,
		Step:          1,
		Default:       1,
		AutoSupported: true,
		Description:   "White balance mode (0 manual, 1 auto)",
		Source:        temperature.Source,
	}
	if autoActive {
		c.Current = 1
	}
	return c
}

// whiteBalanceTarget maps a write to the mode entry or its companion onto an
// auto-mode write of the temperature control.
func whiteBalanceTarget(name string) (target string, auto bool) {
	if BaseName(name) == whiteBalanceMode {
		return whiteBalanceTemperature, true
	}
	return BaseName(name), IsAutomatic(name)
}
