package devices

import "testing"

func TestWhiteBalanceTarget(t *testing.T) {
	tests := []struct {
		name       string
		wantTarget string
		wantAuto   bool
	}{
		{"white_balance", "white_balance_temperature", true},
		{"white_balance_automatic", "white_balance_temperature", true},
		{"white_balance_temperature", "white_balance_temperature", false},
		{"exposure_automatic", "exposure", true},
		{"gain", "gain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, auto := whiteBalanceTarget(tt.name)
			if target != tt.wantTarget || auto != tt.wantAuto {
				t.Errorf("whiteBalanceTarget(%q) = %q, %v, want %q, %v",
					tt.name, target, auto, tt.wantTarget, tt.wantAuto)
			}
		})
	}
}

func TestSimulatedWhiteBalance(t *testing.T) {
	controls := SimulatedControls(0)

	temp, ok := FindControl(controls, "white_balance_temperature")
	if !ok {
		t.Fatal("no white_balance_temperature control")
	}
	if temp.Min != 2800 || temp.Max != 6500 || !temp.AutoSupported {
		t.Errorf("white_balance_temperature = %+v", temp)
	}

	mode, ok := FindControl(controls, "white_balance")
	if !ok {
		t.Fatal("no white_balance mode entry")
	}
	if mode.Min != 0 || mode.Max != 1 || mode.Current != 0 || mode.Source != SourceSimulated {
		t.Errorf("white_balance = %+v, want a 0..1 manual simulated entry", mode)
	}

	if _, ok := FindControl(controls, "whitebalance"); ok {
		t.Error("legacy whitebalance name still reported")
	}
}

func TestWhiteBalanceModeControl(t *testing.T) {
	temp := ControlInfo{Name: "white_balance_temperature", Min: 2800, Max: 6500, Source: SourceHardware}

	on := whiteBalanceModeControl(temp, true)
	if on.Current != 1 || !on.InRange(on.Current) || on.Source != SourceHardware {
		t.Errorf("auto entry = %+v", on)
	}
	if off := whiteBalanceModeControl(temp, false); off.Current != 0 {
		t.Errorf("manual entry current = %d, want 0", off.Current)
	}
}
