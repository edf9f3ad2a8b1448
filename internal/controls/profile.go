package controls

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/events"
)

// ProfileEntry is one control's saved state.
type ProfileEntry struct {
	Value       int  `json:"value" example:"128"`
	AutoEnabled bool `json:"auto_enabled"`
}

// Profile maps control names to saved states.
type Profile map[string]ProfileEntry

// ErrProfileNotFound is returned for an unknown profile name.
var ErrProfileNotFound = errors.New("profile not found")

// CreateProfile snapshots the available controls of device under name,
// replacing any profile with that name.
func (m *Manager) CreateProfile(ctx context.Context, name string, device int) (Profile, error) {
	if name == "" {
		return nil, errors.New("profile name is empty")
	}
	available, err := m.GetAvailableControls(ctx, device)
	if err != nil {
		return nil, err
	}

	p := make(Profile, len(available))
	for _, c := range available {
		p[c.Name] = ProfileEntry{Value: c.Current, AutoEnabled: c.AutoEnabled}
	}

	m.mu.Lock()
	m.profiles[name] = p
	m.mu.Unlock()

	m.logger.Info("Profile created", "profile", name, "device", device, "controls", len(p))
	return maps.Clone(p), nil
}

// PutProfile stores p under name.
func (m *Manager) PutProfile(name string, p Profile) error {
	if name == "" {
		return errors.New("profile name is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[name] = maps.Clone(p)
	return nil
}

// GetProfile returns a copy of a stored profile.
func (m *Manager) GetProfile(name string) (Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[name]
	return maps.Clone(p), ok
}

// ListProfiles returns the profile names in sorted order.
func (m *Manager) ListProfiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.profiles))
}

// DeleteProfile removes a profile.
func (m *Manager) DeleteProfile(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[name]; !ok {
		return ErrProfileNotFound
	}
	delete(m.profiles, name)
	return nil
}

// ApplyProfile restores auto modes first, then writes the saved value of
// every control left in manual mode. It keeps going past failures and
// returns them joined.
func (m *Manager) ApplyProfile(ctx context.Context, name string, device int) error {
	p, ok := m.GetProfile(name)
	if !ok {
		return ErrProfileNotFound
	}

	var applied, failed []string
	var errs []error
	for _, control := range slices.Sorted(maps.Keys(p)) {
		entry := p[control]
		def, known := m.registry.Get(control)
		if !known {
			failed = append(failed, control)
			errs = append(errs, deverr.Newf(deverr.KindControlNotSupported, "unknown control %q", control))
			continue
		}

		var err error
		switch {
		case entry.AutoEnabled:
			err = m.EnableAutoMode(ctx, device, control)
		case def.AutoSupported && m.AutoEnabled(control):
			err = m.DisableAutoMode(ctx, device, control)
		}
		if err == nil && !entry.AutoEnabled {
			err = m.SetControlWithValidation(ctx, device, control, entry.Value)
		}

		if err != nil {
			failed = append(failed, control)
			errs = append(errs, err)
			continue
		}
		applied = append(applied, control)
	}

	m.logger.Info("Profile applied", "profile", name, "device", device, "applied", applied, "failed", failed)
	m.bus.Publish(events.ProfileAppliedEvent{
		Profile:   name,
		Device:    device,
		Applied:   len(applied),
		Failed:    len(failed),
		Timestamp: events.Now(),
	})
	return errors.Join(errs...)
}
