package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/smazurov/camctl/internal/api/models"
	"github.com/smazurov/camctl/internal/cache"
	"github.com/smazurov/camctl/internal/controls"
	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/devices"
	"github.com/smazurov/camctl/internal/events"
	"github.com/smazurov/camctl/internal/logging"
)

type testEnv struct {
	server  *Server
	api     humatest.TestAPI
	backend *devices.MemoryBackend
	history *deverr.History
	bus     *events.Bus
}

func newTestEnv(t *testing.T, user, pass string) *testEnv {
	t.Helper()

	bus := events.New()
	backend := devices.NewMemoryBackend(devices.DemoDevices()...)
	ctrl := devices.NewController(backend, nil, devices.WithEventBus(bus))
	c := cache.New(ctrl, cache.DefaultConfig(), bus)
	history := deverr.NewHistory()
	mgr := controls.NewManager(ctrl,
		controls.WithEventBus(bus),
		controls.WithHistory(history),
		controls.WithSettleTime(0),
	)

	s := NewServer(&Options{
		Controller:   ctrl,
		Cache:        c,
		Manager:      mgr,
		History:      history,
		EventBus:     bus,
		AuthUsername: user,
		AuthPassword: pass,
	})

	return &testEnv{
		server:  s,
		api:     humatest.Wrap(t, s.API()),
		backend: backend,
		history: history,
		bus:     bus,
	}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.api.Get("/api/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}
	got := decode[models.HealthData](t, resp)
	if got.Backend != "memory" || got.Mode != "native" {
		t.Errorf("health = %+v", got)
	}
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.api.Get("/api/devices")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	got := decode[models.DeviceListData](t, resp)
	if got.Count != 2 || len(got.Devices) != 2 {
		t.Fatalf("devices = %+v", got)
	}
	if got.Devices[0].Name != "Demo USB Webcam HD" {
		t.Errorf("first device = %q", got.Devices[0].Name)
	}
}

func TestFormatsAndControls(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.api.Get("/api/devices/0/formats")
	if resp.Code != http.StatusOK {
		t.Fatalf("formats status = %d", resp.Code)
	}
	if len(resp.Body.String()) == 0 || !strings.Contains(resp.Body.String(), `"MJPG"`) {
		t.Errorf("formats body missing MJPG: %s", resp.Body.String())
	}

	resp = env.api.Get("/api/devices/0/controls")
	if resp.Code != http.StatusOK {
		t.Fatalf("controls status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"brightness"`) {
		t.Errorf("controls body missing brightness")
	}
}

func TestUnknownDevice(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.api.Get("/api/devices/9/formats")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), string(deverr.KindDeviceNotFound)) {
		t.Errorf("body does not carry the kind: %s", resp.Body.String())
	}
	if env.history.Len() != 1 {
		t.Errorf("history len = %d, want 1", env.history.Len())
	}
}

func TestSetControl(t *testing.T) {
	env := newTestEnv(t, "", "")

	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
		value  int
	}{
		{"in range", "/api/devices/0/controls/brightness", map[string]any{"value": 200}, http.StatusOK, 200},
		{"float truncates", "/api/devices/0/controls/contrast", map[string]any{"value": 99.9}, http.StatusOK, 99},
		{"out of range", "/api/devices/0/controls/brightness", map[string]any{"value": 999}, http.StatusUnprocessableEntity, 0},
		{"unknown control", "/api/devices/0/controls/iris", map[string]any{"value": 1}, http.StatusNotFound, 0},
		{"unknown device", "/api/devices/7/controls/brightness", map[string]any{"value": 1}, http.StatusNotFound, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.api.Put(tt.path, tt.body)
			if resp.Code != tt.status {
				t.Fatalf("status = %d, want %d, body %s", resp.Code, tt.status, resp.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			got := decode[struct {
				Value int `json:"value"`
			}](t, resp)
			if got.Value != tt.value {
				t.Errorf("value = %d, want %d", got.Value, tt.value)
			}
		})
	}

	resp := env.api.Get("/api/devices/0/controls/brightness")
	if resp.Code != http.StatusOK {
		t.Fatalf("get status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"value":200`) {
		t.Errorf("read back %s", resp.Body.String())
	}
}

func TestSetControlInvalidatesCache(t *testing.T) {
	env := newTestEnv(t, "", "")

	env.api.Get("/api/devices/0/controls")
	if resp := env.api.Put("/api/devices/0/controls/saturation", map[string]any{"value": 10}); resp.Code != http.StatusOK {
		t.Fatalf("put status = %d", resp.Code)
	}

	resp := env.api.Get("/api/devices/0/controls")
	var body struct {
		Controls []devices.ControlInfo `json:"controls"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	for _, c := range body.Controls {
		if c.Name == "saturation" && c.Current != 10 {
			t.Errorf("saturation current = %d, want 10", c.Current)
		}
	}
}

func TestManagerReadsLiveValues(t *testing.T) {
	env := newTestEnv(t, "", "")

	if resp := env.api.Get("/api/devices/0/advanced"); resp.Code != http.StatusOK {
		t.Fatalf("advanced status = %d", resp.Code)
	}
	env.api.Get("/api/devices/0/controls")

	// a write that bypasses the manager and the cache
	if err := env.backend.SetControl(context.Background(), 0, "brightness", 200); err != nil {
		t.Fatal(err)
	}

	resp := env.api.Post("/api/profiles", map[string]any{"name": "snapshot", "device": 0})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.Code, resp.Body.String())
	}
	profile := decode[struct {
		Controls controls.Profile `json:"controls"`
	}](t, resp)
	if got := profile.Controls["brightness"].Value; got != 200 {
		t.Errorf("profile brightness = %d, want 200", got)
	}

	resp = env.api.Get("/api/devices/0/advanced")
	advanced := decode[struct {
		Controls []controls.AdvancedControlInfo `json:"controls"`
	}](t, resp)
	for _, c := range advanced.Controls {
		if c.Name == "brightness" && c.Current != 200 {
			t.Errorf("advanced brightness = %d, want 200", c.Current)
		}
	}
}

func TestAutoModeInvalidatesCache(t *testing.T) {
	env := newTestEnv(t, "", "")
	ctx := context.Background()

	env.api.Get("/api/devices/0/controls")
	if err := env.backend.SetControl(ctx, 0, "gain", 42); err != nil {
		t.Fatal(err)
	}
	resp := env.api.Put("/api/devices/0/advanced/exposure/auto", map[string]any{"enabled": true})
	if resp.Code != http.StatusOK {
		t.Fatalf("auto status = %d, body %s", resp.Code, resp.Body.String())
	}

	body := decode[struct {
		Controls []devices.ControlInfo `json:"controls"`
	}](t, env.api.Get("/api/devices/0/controls"))
	for _, c := range body.Controls {
		if c.Name == "gain" && c.Current != 42 {
			t.Errorf("gain current = %d, want 42 after auto mode change", c.Current)
		}
	}
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.api.Get("/api/devices/batch?index=0,5")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var body struct {
		Devices []cache.DeviceSummary `json:"devices"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Devices) != 2 {
		t.Fatalf("got %d summaries", len(body.Devices))
	}
	if body.Devices[0].Error != "" || body.Devices[1].Error == "" {
		t.Errorf("errors = %q, %q", body.Devices[0].Error, body.Devices[1].Error)
	}

	resp = env.api.Get("/api/devices/batch")
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Devices) != 2 {
		t.Errorf("all devices: got %d summaries, want 2", len(body.Devices))
	}
}

func TestAdvancedAndAuto(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.api.Get("/api/devices/0/advanced")
	if resp.Code != http.StatusOK {
		t.Fatalf("advanced status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"exposure"`) {
		t.Errorf("advanced list missing exposure")
	}

	resp = env.api.Put("/api/devices/0/advanced/exposure/auto", map[string]any{"enabled": true})
	if resp.Code != http.StatusOK {
		t.Fatalf("auto status = %d, body %s", resp.Code, resp.Body.String())
	}
	if !env.backend.Auto(0, "exposure") {
		t.Error("backend auto flag not set")
	}

	resp = env.api.Put("/api/devices/0/advanced/hue/auto", map[string]any{"enabled": true})
	if resp.Code != http.StatusNotFound {
		t.Errorf("hue auto status = %d, want 404", resp.Code)
	}

	resp = env.api.Post("/api/devices/0/auto-adjust/white-balance")
	if resp.Code != http.StatusOK {
		t.Fatalf("auto-adjust status = %d, body %s", resp.Code, resp.Body.String())
	}

	resp = env.api.Post("/api/devices/0/auto-adjust/focus")
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad target status = %d, want 422", resp.Code)
	}
}

func TestProfiles(t *testing.T) {
	env := newTestEnv(t, "", "")

	resp := env.api.Post("/api/profiles", map[string]any{"name": "daylight", "device": 0})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.Code, resp.Body.String())
	}

	env.api.Put("/api/devices/0/controls/brightness", map[string]any{"value": 10})

	resp = env.api.Post("/api/profiles/daylight/apply", map[string]any{"device": 0})
	if resp.Code != http.StatusOK {
		t.Fatalf("apply status = %d, body %s", resp.Code, resp.Body.String())
	}
	resp = env.api.Get("/api/devices/0/controls/brightness")
	if !strings.Contains(resp.Body.String(), `"value":128`) {
		t.Errorf("brightness after apply: %s", resp.Body.String())
	}

	resp = env.api.Get("/api/profiles")
	if !strings.Contains(resp.Body.String(), "daylight") {
		t.Errorf("list: %s", resp.Body.String())
	}

	if resp := env.api.Get("/api/profiles/night"); resp.Code != http.StatusNotFound {
		t.Errorf("missing profile status = %d", resp.Code)
	}
	if resp := env.api.Delete("/api/profiles/daylight"); resp.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.Code)
	}
	if resp := env.api.Delete("/api/profiles/daylight"); resp.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", resp.Code)
	}
}

func TestDiagnostics(t *testing.T) {
	env := newTestEnv(t, "", "")

	env.api.Get("/api/devices/0/controls")
	env.api.Get("/api/devices/0/controls")
	env.api.Put("/api/devices/0/controls/brightness", map[string]any{"value": 1000})

	resp := env.api.Get("/api/cache")
	if resp.Code != http.StatusOK {
		t.Fatalf("cache status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"controls_ttl":"30s"`) {
		t.Errorf("cache body: %s", resp.Body.String())
	}
	if resp := env.api.Delete("/api/cache"); resp.Code != http.StatusNoContent {
		t.Errorf("clear cache status = %d", resp.Code)
	}

	resp = env.api.Get("/api/errors")
	var hist struct {
		Errors []deverr.Record `json:"errors"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.Errors) != 1 || hist.Errors[0].Kind != deverr.KindControlOutOfRange {
		t.Errorf("history = %+v", hist.Errors)
	}

	if resp := env.api.Delete("/api/errors"); resp.Code != http.StatusNoContent {
		t.Errorf("clear errors status = %d", resp.Code)
	}
	if env.history.Len() != 0 {
		t.Errorf("history not cleared")
	}
}

func TestBasicAuth(t *testing.T) {
	env := newTestEnv(t, "admin", "secret")
	creds := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	wrong := base64.StdEncoding.EncodeToString([]byte("admin:nope"))

	tests := []struct {
		name   string
		path   string
		args   []any
		status int
	}{
		{"health is public", "/api/health", nil, http.StatusOK},
		{"missing credentials", "/api/devices", nil, http.StatusUnauthorized},
		{"header", "/api/devices", []any{"Authorization: Basic " + creds}, http.StatusOK},
		{"wrong password", "/api/devices", []any{"Authorization: Basic " + wrong}, http.StatusUnauthorized},
		{"bearer", "/api/devices", []any{"Authorization: Bearer x"}, http.StatusUnauthorized},
		{"query", "/api/devices?auth=" + creds, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.api.Get(tt.path, tt.args...)
			if resp.Code != tt.status {
				t.Errorf("status = %d, want %d", resp.Code, tt.status)
			}
		})
	}
}

func TestMuxRoutes(t *testing.T) {
	env := newTestEnv(t, "", "")
	h := env.server.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/devices", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight missing CORS header")
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, "", "")
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()
	defer ts.CloseClientConnections()

	lines := make(chan string, 16)
	go func() {
		resp, err := http.Get(ts.URL + "/api/events/stream")
		if err != nil {
			return
		}
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// the subscription happens inside the handler; publish until it lands
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-lines:
			if strings.HasPrefix(line, "event:") {
				if !strings.Contains(line, "control-changed") {
					t.Errorf("event line = %q", line)
				}
				return
			}
		case <-tick.C:
			env.bus.Publish(events.ControlChangedEvent{Device: 0, Control: "brightness", Value: 1, Timestamp: events.Now()})
		case <-deadline:
			t.Fatal("no event received")
		}
	}
}

func TestLogsQuery(t *testing.T) {
	env := newTestEnv(t, "", "")

	zero, one := 0, 1
	buffer := logging.GetBuffer()
	buffer.Write(logging.LogEntry{Module: "logs-query", Level: "debug", Device: &zero, Control: "focus", Message: "focus read"})
	buffer.Write(logging.LogEntry{Module: "logs-query", Level: "warn", Device: &one, Control: "exposure", Message: "exposure busy"})
	buffer.Write(logging.LogEntry{Module: "logs-query", Level: "error", Device: &zero, Control: "exposure", Message: "exposure failed"})

	tests := []struct {
		query string
		want  []string
	}{
		{"module=logs-query", []string{"focus read", "exposure busy", "exposure failed"}},
		{"module=logs-query&device=0", []string{"focus read", "exposure failed"}},
		{"module=logs-query&control=exposure", []string{"exposure busy", "exposure failed"}},
		{"module=logs-query&level=warn", []string{"exposure busy", "exposure failed"}},
		{"module=logs-query&device=0&level=warn", []string{"exposure failed"}},
		{"module=logs-query&limit=1", []string{"exposure failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := env.api.Get("/api/logs?" + tt.query)
			if resp.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
			}
			got := decode[struct {
				Entries []logging.LogEntry `json:"entries"`
			}](t, resp)
			var messages []string
			for _, e := range got.Entries {
				messages = append(messages, e.Message)
			}
			if strings.Join(messages, "|") != strings.Join(tt.want, "|") {
				t.Errorf("messages = %q, want %q", messages, tt.want)
			}
		})
	}

	if resp := env.api.Get("/api/logs?level=loud"); resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown level status = %d, want 422", resp.Code)
	}
}
