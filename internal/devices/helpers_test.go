package devices

import (
	"reflect"
	"testing"
)

func TestSimulatedControlsReproducible(t *testing.T) {
	a := SimulatedControls(2)
	b := SimulatedControls(2)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("SimulatedControls(2) differs between calls")
	}
	if reflect.DeepEqual(a, SimulatedControls(3)) {
		t.Error("SimulatedControls should vary with the index")
	}
	for _, c := range a {
		if c.Source != SourceSimulated {
			t.Errorf("%s source = %s, want simulated", c.Name, c.Source)
		}
		if !c.InRange(c.Current) || !c.InRange(c.Default) {
			t.Errorf("%s values outside [%d, %d]: %+v", c.Name, c.Min, c.Max, c)
		}
		if (c.Current-c.Min)%c.Step != 0 {
			t.Errorf("%s current %d not on a step", c.Name, c.Current)
		}
	}
}

func TestIsCameraEntity(t *testing.T) {
	tests := []struct {
		name   string
		entity PnPEntity
		want   bool
	}{
		{"webcam keyword", PnPEntity{Name: "Integrated Webcam"}, true},
		{"video keyword", PnPEntity{Name: "USB Video Device"}, true},
		{"camera class guid", PnPEntity{Name: "Device", ClassGuid: "{CA3E7AB9-B4C3-4AE6-8251-579EF933890F}"}, true},
		{"image class", PnPEntity{Name: "Scanner thing", PNPClass: "Image"}, true},
		{"video interface of composite", PnPEntity{Name: "HD Pro", DeviceID: `USB\VID_046D&PID_082D&MI_00\7&1`}, true},
		{"audio function excluded", PnPEntity{Name: "Webcam Audio", DeviceID: `USB\VID_046D&PID_082D&MI_02\7&1`}, false},
		{"microphone excluded", PnPEntity{Name: "Camera Microphone"}, false},
		{"keyboard", PnPEntity{Name: "HID Keyboard Device", DeviceID: `HID\VID_1234`}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCameraEntity(tt.entity); got != tt.want {
				t.Errorf("IsCameraEntity(%+v) = %v, want %v", tt.entity, got, tt.want)
			}
		})
	}
}

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.5, 50},
		{0.333, 33},
		{1, 100},
		{1.7, 100},
		{-0.2, 0},
	}
	for _, tt := range tests {
		if got := NormalizeUnit(tt.in); got != tt.want {
			t.Errorf("NormalizeUnit(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	for v := 0; v <= 100; v++ {
		if got := NormalizeUnit(DenormalizeUnit(v)); got != v {
			t.Fatalf("round trip of %d gave %d", v, got)
		}
	}
}

func TestZoomFactor(t *testing.T) {
	if got := ZoomFactor(0, 4); got != 1 {
		t.Errorf("ZoomFactor(0, 4) = %v, want 1", got)
	}
	if got := ZoomFactor(100, 4); got != 4 {
		t.Errorf("ZoomFactor(100, 4) = %v, want 4", got)
	}
	if got := ZoomFactor(50, 3); got != 2 {
		t.Errorf("ZoomFactor(50, 3) = %v, want 2", got)
	}
	if got := ZoomPercent(ZoomFactor(40, 5), 5); got != 40 {
		t.Errorf("ZoomPercent round trip = %d, want 40", got)
	}
	if got := ZoomPercent(1, 1); got != 0 {
		t.Errorf("ZoomPercent without zoom = %d, want 0", got)
	}
}

func TestFrameRatesInRange(t *testing.T) {
	tests := []struct {
		lo, hi float64
		want   []float64
	}{
		{1, 30, []float64{15, 24, 30}},
		{30, 30, []float64{30}},
		{25, 29.97, nil},
		{1, 120, []float64{15, 24, 30, 60}},
	}
	for _, tt := range tests {
		if got := FrameRatesInRange(tt.lo, tt.hi); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FrameRatesInRange(%v, %v) = %v, want %v", tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestParseDeviceIndex(t *testing.T) {
	tests := []struct {
		arg  string
		want int
	}{
		{"/dev/video0", 0},
		{"/dev/video7", 7},
		{"3", 3},
		{" 12 ", 12},
		{"-1", 0},
		{"webcam", 0},
		{"/dev/null", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			if got := ParseDeviceIndex(tt.arg); got != tt.want {
				t.Errorf("ParseDeviceIndex(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}

func TestAutomaticNames(t *testing.T) {
	if got := AutomaticName("exposure"); got != "exposure_automatic" {
		t.Errorf("AutomaticName = %q", got)
	}
	if !IsAutomatic("focus_automatic") || IsAutomatic("focus_auto") {
		t.Error("IsAutomatic misclassifies")
	}
	if got := BaseName("white_balance_automatic"); got != "white_balance" {
		t.Errorf("BaseName = %q", got)
	}
}
