// Package controls layers named, typed and validated controls over a
// device controller: value validation, dependency checks, auto/manual mode
// and in-memory profiles.
package controls

import (
	"fmt"
	"slices"

	"github.com/smazurov/camctl/internal/devices"
)

// Type is how a control's value is interpreted.
type Type string

const (
	TypeRange   Type = "range"
	TypeBoolean Type = "boolean"
	TypeMenu    Type = "menu"
	TypeAction  Type = "action"
)

// Definition is the static template for one control. Numeric fields are
// placeholders until filled from the live device.
type Definition struct {
	Name          string
	DisplayName   string
	Description   string
	Type          Type
	Min           int
	Max           int
	Step          int
	Default       int
	AutoSupported bool
	MenuItems     []string
	Dependencies  []string
}

// AdvancedControlInfo is a Definition merged with a live control snapshot.
type AdvancedControlInfo struct {
	Name          string             `json:"name" example:"exposure"`
	DisplayName   string             `json:"display_name" example:"Exposure"`
	Description   string             `json:"description"`
	Type          Type               `json:"type" enum:"range,boolean,menu,action"`
	Min           int                `json:"min"`
	Max           int                `json:"max"`
	Step          int                `json:"step"`
	Default       int                `json:"default"`
	Current       int                `json:"current"`
	AutoSupported bool               `json:"auto_supported"`
	AutoEnabled   bool               `json:"auto_enabled"`
	MenuItems     []string           `json:"menu_items,omitempty"`
	Dependencies  []string           `json:"dependencies,omitempty"`
	Source        devices.Provenance `json:"source"`
}

// Registry is an ordered set of definitions whose dependencies all resolve
// within the set.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry builds a registry. It fails on duplicate names and on
// dependencies that name a control outside the registry.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("control definition without a name")
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate control definition %q", d.Name)
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	for _, d := range defs {
		for _, dep := range d.Dependencies {
			if _, ok := r.defs[dep]; !ok {
				return nil, fmt.Errorf("control %q depends on unknown control %q", d.Name, dep)
			}
		}
	}
	return r, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns control names in registry order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.order) }

// DefaultRegistry returns the built-in control set.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultDefinitions()...)
	if err != nil {
		panic(err)
	}
	return r
}

func defaultDefinitions() []Definition {
	return []Definition{
		{Name: "brightness", DisplayName: "Brightness", Description: "Image brightness", Type: TypeRange, AutoSupported: true},
		{Name: "contrast", DisplayName: "Contrast", Description: "Image contrast", Type: TypeRange, AutoSupported: true},
		{Name: "saturation", DisplayName: "Saturation", Description: "Color saturation", Type: TypeRange, AutoSupported: true},
		{Name: "hue", DisplayName: "Hue", Description: "Color hue", Type: TypeRange},

		{Name: "exposure", DisplayName: "Exposure", Description: "Exposure time", Type: TypeRange, AutoSupported: true},
		{Name: "exposure_auto", DisplayName: "Auto Exposure", Description: "Automatic exposure on or off", Type: TypeBoolean, Dependencies: []string{"exposure"}},
		{Name: "gain", DisplayName: "Gain", Description: "Sensor gain", Type: TypeRange, AutoSupported: true},

		{Name: "focus", DisplayName: "Focus", Description: "Lens focus position", Type: TypeRange, AutoSupported: true},
		{Name: "focus_auto", DisplayName: "Auto Focus", Description: "Automatic focus on or off", Type: TypeBoolean, Dependencies: []string{"focus"}},
		{Name: "focus_continuous", DisplayName: "Continuous Focus", Description: "Continuous automatic focus", Type: TypeBoolean, Dependencies: []string{"focus_auto"}},

		{
			Name: "white_balance", DisplayName: "White Balance", Description: "White balance preset", Type: TypeMenu,
			AutoSupported: true,
			MenuItems:     []string{"Auto", "Incandescent", "Fluorescent", "Daylight", "Cloudy", "Manual"},
		},
		{
			Name: "white_balance_temperature", DisplayName: "Color Temperature", Description: "Manual color temperature",
			Type: TypeRange, Min: 2000, Max: 10000, Dependencies: []string{"white_balance"},
		},

		{Name: "zoom", DisplayName: "Zoom", Description: "Digital zoom", Type: TypeRange, Min: 100, Max: 1000, Default: 100},
		{Name: "pan", DisplayName: "Pan", Description: "Horizontal position", Type: TypeRange},
		{Name: "tilt", DisplayName: "Tilt", Description: "Vertical position", Type: TypeRange},

		{Name: "sharpness", DisplayName: "Sharpness", Description: "Image sharpness", Type: TypeRange},
		{Name: "gamma", DisplayName: "Gamma", Description: "Gamma correction", Type: TypeRange},
		{Name: "backlight_compensation", DisplayName: "Backlight Compensation", Description: "Backlight compensation", Type: TypeBoolean},

		{Name: "noise_reduction", DisplayName: "Noise Reduction", Description: "Image noise reduction", Type: TypeRange},
		{Name: "image_stabilization", DisplayName: "Image Stabilization", Description: "Image stabilization", Type: TypeBoolean},
	}
}
