package controls

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/devices"
	"github.com/smazurov/camctl/internal/events"
)

func testBackend(controls ...devices.ControlInfo) *devices.MemoryBackend {
	return devices.NewMemoryBackend(devices.MemoryDevice{
		Info:     devices.DeviceInfo{Index: 0, Name: "test cam", Path: "/dev/video0"},
		Controls: controls,
	})
}

func ctrl(name string, lo, hi, cur int) devices.ControlInfo {
	return devices.ControlInfo{Name: name, Min: lo, Max: hi, Step: 1, Default: lo, Current: cur, Source: devices.SourceHardware}
}

func autoCtrl(name string, lo, hi, cur int) devices.ControlInfo {
	c := ctrl(name, lo, hi, cur)
	c.AutoSupported = true
	return c
}

func TestSetControlWithValidationEndToEnd(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(devices.NewController(testBackend(ctrl("brightness", 0, 255, 100)), nil))

	err := mgr.SetControlWithValidation(ctx, 0, "brightness", 300)
	if !errors.Is(err, deverr.ErrControlOutOfRange) {
		t.Fatalf("set 300: error = %v, want control-value-out-of-range", err)
	}

	if err := mgr.SetControlWithValidation(ctx, 0, "brightness", 200); err != nil {
		t.Fatalf("set 200: %v", err)
	}

	available, err := mgr.GetAvailableControls(ctx, 0)
	if err != nil {
		t.Fatalf("GetAvailableControls() error = %v", err)
	}
	info, ok := find(available, "brightness")
	if !ok || info.Current != 200 {
		t.Errorf("brightness after set = %+v, want current 200", info)
	}
	if info.DisplayName != "Brightness" || info.Max != 255 {
		t.Errorf("registry/live merge wrong: %+v", info)
	}
}

func TestSetControlWithValidationRejects(t *testing.T) {
	ctx := context.Background()
	backend := testBackend(ctrl("brightness", 0, 255, 100), ctrl("backlight_compensation", 0, 1, 0))
	mgr := NewManager(backend)

	tests := []struct {
		name    string
		control string
		value   any
		want    deverr.Kind
	}{
		{"unknown to registry", "warp", 1, deverr.KindControlNotSupported},
		{"not reported by device", "zoom", 150, deverr.KindControlNotSupported},
		{"string for range", "brightness", "bright", deverr.KindControlOutOfRange},
		{"float in range", "brightness", 12.7, ""},
		{"bool for boolean", "backlight_compensation", true, ""},
		{"int for boolean", "backlight_compensation", 0, ""},
		{"string for boolean", "backlight_compensation", "on", deverr.KindControlOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mgr.SetControlWithValidation(ctx, 0, tt.control, tt.value)
			if got := deverr.KindOf(err); got != tt.want {
				t.Errorf("kind = %q, want %q (err %v)", got, tt.want, err)
			}
		})
	}

	controls, _ := backend.GetControls(ctx, 0)
	if c, _ := devices.FindControl(controls, "brightness"); c.Current != 12 {
		t.Errorf("brightness = %d, want 12 (float truncated)", c.Current)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	menu := AdvancedControlInfo{Name: "white_balance", Type: TypeMenu, MenuItems: []string{"Auto", "Manual"}}
	rng := AdvancedControlInfo{Name: "gain", Type: TypeRange, Min: 0, Max: 10}
	boolean := AdvancedControlInfo{Name: "focus_auto", Type: TypeBoolean}

	tests := []struct {
		name  string
		info  AdvancedControlInfo
		value any
		ok    bool
	}{
		{"range low edge", rng, 0, true},
		{"range high edge", rng, 10, true},
		{"range above", rng, 11, false},
		{"range float above", rng, 10.5, false},
		{"range nil", rng, nil, false},
		{"menu index", menu, 1, true},
		{"menu index too big", menu, 2, false},
		{"menu negative", menu, -1, false},
		{"menu non-integer coerced", menu, "Daylight", true},
		{"boolean true", boolean, true, true},
		{"boolean uint8", boolean, uint8(1), true},
		{"boolean float", boolean, 1.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Validate(tt.info, tt.value)
			second := Validate(tt.info, tt.value)
			if (first == nil) != tt.ok {
				t.Errorf("Validate(%v) = %v, want ok=%v", tt.value, first, tt.ok)
			}
			if (first == nil) != (second == nil) || deverr.KindOf(first) != deverr.KindOf(second) {
				t.Errorf("Validate not idempotent: %v then %v", first, second)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		typ   Type
		value any
		want  int
	}{
		{TypeBoolean, true, 1},
		{TypeBoolean, false, 0},
		{TypeBoolean, 5, 1},
		{TypeMenu, 3, 3},
		{TypeMenu, "Cloudy", 0},
		{TypeRange, 42.9, 42},
		{TypeRange, int64(-7), -7},
		{TypeAction, nil, 1},
	}
	for _, tt := range tests {
		if got := Coerce(tt.typ, tt.value); got != tt.want {
			t.Errorf("Coerce(%s, %v) = %d, want %d", tt.typ, tt.value, got, tt.want)
		}
	}
}

func TestDependencyGate(t *testing.T) {
	ctx := context.Background()

	without := NewManager(testBackend(ctrl("white_balance_temperature", 2000, 6500, 4000)))
	err := without.SetControlWithValidation(ctx, 0, "white_balance_temperature", 5000)
	if !errors.Is(err, deverr.ErrDependencyMissing) {
		t.Fatalf("error = %v, want dependency-missing", err)
	}

	with := NewManager(testBackend(
		ctrl("white_balance", 0, 5, 0),
		ctrl("white_balance_temperature", 2000, 6500, 4000),
	))
	if err := with.SetControlWithValidation(ctx, 0, "white_balance_temperature", 5000); err != nil {
		t.Fatalf("with dependency present: %v", err)
	}
}

func TestAutoMode(t *testing.T) {
	ctx := context.Background()
	backend := testBackend(autoCtrl("exposure", 3, 2047, 250), ctrl("hue", -180, 180, 0))
	bus := events.New()
	changed := make(chan events.AutoModeChangedEvent, 2)
	unsub := bus.Subscribe(func(e events.AutoModeChangedEvent) { changed <- e })
	defer unsub()

	mgr := NewManager(backend, WithEventBus(bus))

	if err := mgr.EnableAutoMode(ctx, 0, "exposure"); err != nil {
		t.Fatalf("EnableAutoMode(exposure) error = %v", err)
	}
	if !backend.Auto(0, "exposure") || !mgr.AutoEnabled("exposure") {
		t.Error("exposure auto mode not recorded")
	}
	select {
	case e := <-changed:
		if e.Control != "exposure" || !e.Enabled {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("expected AutoModeChangedEvent")
	}

	if err := mgr.DisableAutoMode(ctx, 0, "exposure"); err != nil {
		t.Fatalf("DisableAutoMode(exposure) error = %v", err)
	}
	if backend.Auto(0, "exposure") || mgr.AutoEnabled("exposure") {
		t.Error("exposure still automatic")
	}

	if err := mgr.EnableAutoMode(ctx, 0, "hue"); !errors.Is(err, deverr.ErrControlNotSupported) {
		t.Errorf("EnableAutoMode(hue) error = %v, want control-not-supported", err)
	}
}

func TestAutoModeNotUpdatedOnFailure(t *testing.T) {
	// gain is auto-capable in the registry but the device lacks it
	mgr := NewManager(testBackend(ctrl("brightness", 0, 255, 1)))
	if err := mgr.EnableAutoMode(context.Background(), 0, "gain"); err == nil {
		t.Fatal("EnableAutoMode(gain) should fail")
	}
	if mgr.AutoEnabled("gain") {
		t.Error("auto map updated after failed dispatch")
	}
}

func TestAutoAdjust(t *testing.T) {
	backend := testBackend(autoCtrl("exposure", 3, 2047, 250))

	mgr := NewManager(backend, WithSettleTime(0))
	if err := mgr.AutoAdjustExposure(context.Background(), 0); err != nil {
		t.Fatalf("AutoAdjustExposure() error = %v", err)
	}

	slow := NewManager(backend, WithSettleTime(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := slow.AutoAdjustExposure(ctx, 0)
	if deverr.KindOf(err) != deverr.KindTimeout {
		t.Errorf("AutoAdjustExposure() with short deadline = %v, want timeout", err)
	}

	// white balance missing on this device: enable failure propagates
	if err := mgr.AutoAdjustWhiteBalance(context.Background(), 0); !errors.Is(err, deverr.ErrControlNotSupported) {
		t.Errorf("AutoAdjustWhiteBalance() error = %v, want control-not-supported", err)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := devices.NewMemoryBackend(devices.DemoDevices()...)
	bus := events.New()
	applied := make(chan events.ProfileAppliedEvent, 2)
	unsub := bus.Subscribe(func(e events.ProfileAppliedEvent) { applied <- e })
	defer unsub()

	mgr := NewManager(backend, WithEventBus(bus))

	before, err := mgr.CreateProfile(ctx, "daylight", 0)
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	if len(before) == 0 {
		t.Fatal("empty profile")
	}
	snapshot, _ := backend.GetControls(ctx, 0)

	if err := mgr.ApplyProfile(ctx, "daylight", 0); err != nil {
		t.Fatalf("ApplyProfile() error = %v", err)
	}
	after, _ := backend.GetControls(ctx, 0)
	if !reflect.DeepEqual(snapshot, after) {
		t.Errorf("applying an unchanged profile changed the device:\nbefore %+v\nafter  %+v", snapshot, after)
	}

	select {
	case e := <-applied:
		if e.Profile != "daylight" || e.Failed != 0 || e.Applied != len(before) {
			t.Errorf("ProfileAppliedEvent = %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("expected ProfileAppliedEvent")
	}
}

func TestKelvinWhiteBalanceProfile(t *testing.T) {
	ctx := context.Background()
	backend := devices.NewMemoryBackend(devices.MemoryDevice{
		Info:     devices.DeviceInfo{Index: 0, Name: "simulated cam", Path: "0"},
		Controls: devices.SimulatedControls(1),
	})
	mgr := NewManager(backend)

	snapshot, err := mgr.CreateProfile(ctx, "office", 0)
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	want := snapshot["white_balance_temperature"].Value
	if want < 2800 || want > 6500 {
		t.Fatalf("snapshot temperature = %d, want kelvin", want)
	}

	if err := mgr.SetControlWithValidation(ctx, 0, "white_balance_temperature", 3000); err != nil {
		t.Fatalf("set temperature: %v", err)
	}
	if err := mgr.ApplyProfile(ctx, "office", 0); err != nil {
		t.Fatalf("ApplyProfile() error = %v", err)
	}

	controls, _ := backend.GetControls(ctx, 0)
	if c, _ := devices.FindControl(controls, "white_balance_temperature"); c.Current != want {
		t.Errorf("temperature = %d, want restored %d", c.Current, want)
	}
}

func TestProfileRestoresValues(t *testing.T) {
	ctx := context.Background()
	backend := devices.NewMemoryBackend(devices.DemoDevices()...)
	mgr := NewManager(backend)

	if _, err := mgr.CreateProfile(ctx, "base", 0); err != nil {
		t.Fatal(err)
	}
	if err := mgr.SetControlWithValidation(ctx, 0, "brightness", 10); err != nil {
		t.Fatal(err)
	}
	if err := mgr.EnableAutoMode(ctx, 0, "focus"); err != nil {
		t.Fatal(err)
	}

	if err := mgr.ApplyProfile(ctx, "base", 0); err != nil {
		t.Fatalf("ApplyProfile() error = %v", err)
	}
	controls, _ := backend.GetControls(ctx, 0)
	if c, _ := devices.FindControl(controls, "brightness"); c.Current != 128 {
		t.Errorf("brightness = %d, want restored 128", c.Current)
	}
	if mgr.AutoEnabled("focus") || backend.Auto(0, "focus") {
		t.Error("focus auto mode not restored to manual")
	}
}

func TestProfileHousekeeping(t *testing.T) {
	mgr := NewManager(devices.NewMemoryBackend())

	if err := mgr.PutProfile("night", Profile{"gain": {Value: 200}}); err != nil {
		t.Fatal(err)
	}
	if err := mgr.PutProfile("day", Profile{"gain": {Value: 10}}); err != nil {
		t.Fatal(err)
	}
	if got := mgr.ListProfiles(); !reflect.DeepEqual(got, []string{"day", "night"}) {
		t.Errorf("ListProfiles() = %v", got)
	}

	p, ok := mgr.GetProfile("night")
	if !ok || p["gain"].Value != 200 {
		t.Errorf("GetProfile(night) = %v, %v", p, ok)
	}
	p["gain"] = ProfileEntry{Value: 1}
	if again, _ := mgr.GetProfile("night"); again["gain"].Value != 200 {
		t.Error("GetProfile returned a shared map")
	}

	if err := mgr.DeleteProfile("night"); err != nil {
		t.Fatal(err)
	}
	if err := mgr.DeleteProfile("night"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("second delete error = %v", err)
	}
	if err := mgr.ApplyProfile(context.Background(), "night", 0); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("ApplyProfile(deleted) error = %v", err)
	}
}

func TestManagerRecordsHistory(t *testing.T) {
	history := deverr.NewHistory()
	mgr := NewManager(testBackend(ctrl("brightness", 0, 255, 0)), WithHistory(history))

	_ = mgr.SetControlWithValidation(context.Background(), 0, "brightness", 999)
	if history.Len() != 1 {
		t.Fatalf("history has %d entries, want 1", history.Len())
	}
	rec := history.Entries()[0]
	if rec.Kind != deverr.KindControlOutOfRange || rec.Context["control"] != "brightness" {
		t.Errorf("record = %+v", rec)
	}
}
