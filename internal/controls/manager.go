package controls

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/devices"
	"github.com/smazurov/camctl/internal/events"
	"github.com/smazurov/camctl/internal/logging"
)

// DefaultSettleTime is how long auto-adjust waits after enabling auto mode.
const DefaultSettleTime = 2 * time.Second

// Device is the part of devices.Controller the manager drives.
type Device interface {
	GetControls(ctx context.Context, index int) ([]devices.ControlInfo, error)
	SetControl(ctx context.Context, index int, name string, value int) error
}

// Manager validates and dispatches control writes, tracks auto mode and
// holds profiles.
//
// The auto map records what this manager last switched. It is not read back
// from hardware, so a change made by another program is not reflected.
type Manager struct {
	dev      Device
	registry *Registry
	bus      *events.Bus
	history  *deverr.History
	settle   time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	auto     map[string]bool
	profiles map[string]Profile
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry replaces the default registry.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithEventBus publishes auto mode and profile events.
func WithEventBus(bus *events.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithHistory records every failed operation.
func WithHistory(h *deverr.History) Option {
	return func(m *Manager) { m.history = h }
}

// WithSettleTime sets the auto-adjust wait.
func WithSettleTime(d time.Duration) Option {
	return func(m *Manager) { m.settle = d }
}

// NewManager creates a manager over dev.
func NewManager(dev Device, opts ...Option) *Manager {
	m := &Manager{
		dev:      dev,
		registry: DefaultRegistry(),
		settle:   DefaultSettleTime,
		logger:   logging.GetLogger("controls"),
		auto:     make(map[string]bool),
		profiles: make(map[string]Profile),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the manager's registry.
func (m *Manager) Registry() *Registry { return m.registry }

// SetSettleTime changes the auto-adjust wait, for config reloads.
func (m *Manager) SetSettleTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settle = d
}

// GetAvailableControls returns the registry entries the device currently
// reports, with the device's live numbers.
func (m *Manager) GetAvailableControls(ctx context.Context, device int) ([]AdvancedControlInfo, error) {
	live, err := m.dev.GetControls(ctx, device)
	if err != nil {
		return nil, m.fail(err, device, "")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := []AdvancedControlInfo{}
	for _, name := range m.registry.order {
		c, ok := devices.FindControl(live, name)
		if !ok {
			continue
		}
		out = append(out, merge(m.registry.defs[name], c, m.auto[name]))
	}
	return out, nil
}

func merge(d Definition, c devices.ControlInfo, autoEnabled bool) AdvancedControlInfo {
	return AdvancedControlInfo{
		Name:          d.Name,
		DisplayName:   d.DisplayName,
		Description:   d.Description,
		Type:          d.Type,
		Min:           c.Min,
		Max:           c.Max,
		Step:          c.Step,
		Default:       c.Default,
		Current:       c.Current,
		AutoSupported: d.AutoSupported,
		AutoEnabled:   autoEnabled,
		MenuItems:     d.MenuItems,
		Dependencies:  d.Dependencies,
		Source:        c.Source,
	}
}

// SetControlWithValidation checks value against the live range and the
// control's dependencies, coerces it to an integer and writes it.
func (m *Manager) SetControlWithValidation(ctx context.Context, device int, name string, value any) error {
	if _, ok := m.registry.Get(name); !ok {
		return m.fail(deverr.Newf(deverr.KindControlNotSupported, "unknown control %q", name), device, name)
	}

	available, err := m.GetAvailableControls(ctx, device)
	if err != nil {
		return err
	}
	info, ok := find(available, name)
	if !ok {
		return m.fail(deverr.Newf(deverr.KindControlNotSupported, "device %d does not report %q", device, name), device, name)
	}

	if err := Validate(info, value); err != nil {
		return m.fail(err, device, name)
	}
	if err := checkDependencies(info, available); err != nil {
		return m.fail(err, device, name)
	}

	if err := m.dev.SetControl(ctx, device, name, Coerce(info.Type, value)); err != nil {
		return m.fail(err, device, name)
	}
	return nil
}

func find(controls []AdvancedControlInfo, name string) (AdvancedControlInfo, bool) {
	for _, c := range controls {
		if c.Name == name {
			return c, true
		}
	}
	return AdvancedControlInfo{}, false
}

// Validate checks value against info's type and range. It has no side
// effects.
func Validate(info AdvancedControlInfo, value any) error {
	switch info.Type {
	case TypeRange:
		v, ok := numeric(value)
		if !ok {
			return deverr.Newf(deverr.KindControlOutOfRange, "%s expects a number, got %T", info.Name, value)
		}
		if v < float64(info.Min) || v > float64(info.Max) {
			return deverr.Newf(deverr.KindControlOutOfRange, "%s=%v outside [%d, %d]", info.Name, value, info.Min, info.Max)
		}
	case TypeBoolean:
		if _, ok := value.(bool); ok {
			return nil
		}
		if _, ok := integer(value); !ok {
			return deverr.Newf(deverr.KindControlOutOfRange, "%s expects a boolean, got %T", info.Name, value)
		}
	case TypeMenu:
		if n, ok := integer(value); ok && len(info.MenuItems) > 0 {
			if n < 0 || n >= len(info.MenuItems) {
				return deverr.Newf(deverr.KindControlOutOfRange, "%s menu index %d outside [0, %d)", info.Name, n, len(info.MenuItems))
			}
		}
	}
	return nil
}

// Coerce converts a validated value to what the backend writes. Booleans
// become 0 or 1, and a non-integer menu value becomes 0.
func Coerce(t Type, value any) int {
	switch t {
	case TypeBoolean:
		if b, ok := value.(bool); ok {
			if b {
				return 1
			}
			return 0
		}
		if n, _ := integer(value); n != 0 {
			return 1
		}
		return 0
	case TypeMenu:
		n, _ := integer(value)
		return n
	case TypeAction:
		return 1
	default:
		v, _ := numeric(value)
		return int(v)
	}
}

func checkDependencies(info AdvancedControlInfo, available []AdvancedControlInfo) error {
	for _, dep := range info.Dependencies {
		if _, ok := find(available, dep); !ok {
			return deverr.Newf(deverr.KindDependencyMissing, "%s requires %s", info.Name, dep).
				With("dependency", dep)
		}
	}
	return nil
}

func integer(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	}
	return 0, false
}

func numeric(value any) (float64, bool) {
	if n, ok := integer(value); ok {
		return float64(n), true
	}
	switch v := value.(type) {
	case float32:
		return float64(v), !math.IsNaN(float64(v))
	case float64:
		return v, !math.IsNaN(v)
	}
	return 0, false
}

// EnableAutoMode switches a control to automatic.
func (m *Manager) EnableAutoMode(ctx context.Context, device int, name string) error {
	return m.setAuto(ctx, device, name, true)
}

// DisableAutoMode switches a control to manual.
func (m *Manager) DisableAutoMode(ctx context.Context, device int, name string) error {
	return m.setAuto(ctx, device, name, false)
}

func (m *Manager) setAuto(ctx context.Context, device int, name string, enabled bool) error {
	def, ok := m.registry.Get(name)
	if !ok || !def.AutoSupported {
		return m.fail(deverr.Newf(deverr.KindControlNotSupported, "%s has no auto mode", name), device, name)
	}

	value := 0
	if enabled {
		value = 1
	}
	if err := m.dev.SetControl(ctx, device, devices.AutomaticName(name), value); err != nil {
		return m.fail(err, device, name)
	}

	m.mu.Lock()
	m.auto[name] = enabled
	m.mu.Unlock()

	m.logger.Debug("Auto mode changed", "device", device, "control", name, "enabled", enabled)
	m.bus.Publish(events.AutoModeChangedEvent{
		Device:    device,
		Control:   name,
		Enabled:   enabled,
		Timestamp: events.Now(),
	})
	return nil
}

// AutoEnabled reports the auto state this manager last set for name.
func (m *Manager) AutoEnabled(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auto[name]
}

// AutoAdjustExposure enables auto exposure and waits for it to settle.
func (m *Manager) AutoAdjustExposure(ctx context.Context, device int) error {
	return m.autoAdjust(ctx, device, "exposure")
}

// AutoAdjustWhiteBalance enables auto white balance and waits for it to
// settle.
func (m *Manager) AutoAdjustWhiteBalance(ctx context.Context, device int) error {
	return m.autoAdjust(ctx, device, "white_balance")
}

func (m *Manager) autoAdjust(ctx context.Context, device int, name string) error {
	if err := m.EnableAutoMode(ctx, device, name); err != nil {
		return err
	}

	m.mu.Lock()
	settle := m.settle
	m.mu.Unlock()
	if settle <= 0 {
		return nil
	}

	timer := time.NewTimer(settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return m.fail(deverr.New(deverr.FromError(ctx.Err()), fmt.Sprintf("waiting for %s to settle", name), ctx.Err()), device, name)
	}
}

// fail records err and returns it.
func (m *Manager) fail(err error, device int, control string) error {
	if m.history != nil {
		fields := map[string]any{"device": device}
		if control != "" {
			fields["control"] = control
		}
		m.history.Record(err, fields)
	}
	return err
}
