// Package models holds the request and response shapes of the HTTP API.
package models

import (
	"github.com/smazurov/camctl/internal/cache"
	"github.com/smazurov/camctl/internal/controls"
	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/devices"
	"github.com/smazurov/camctl/internal/logging"
	"github.com/smazurov/camctl/internal/metrics"
	"github.com/smazurov/camctl/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Backend string `json:"backend" example:"v4l2" doc:"Active device backend"`
	Mode    string `json:"mode" example:"native" doc:"native or degraded"`
}

type HealthResponse struct {
	Body HealthData
}

type VersionResponse struct {
	Body version.Info
}

// Device models
type DeviceIndexInput struct {
	Index int `path:"index" minimum:"0" example:"0" doc:"Device index"`
}

type ControlPathInput struct {
	DeviceIndexInput
	Name string `path:"name" example:"brightness" doc:"Control name"`
}

type DeviceListData struct {
	Devices []devices.DeviceInfo `json:"devices" doc:"Devices that could be opened"`
	Count   int                  `json:"count" example:"1" doc:"Number of devices"`
}

type DeviceListResponse struct {
	Body DeviceListData
}

type BatchInput struct {
	Indices []int `query:"index" example:"0" doc:"Device indices; all listed devices when empty"`
}

type BatchResponse struct {
	Body struct {
		Devices []cache.DeviceSummary `json:"devices"`
	}
}

type FormatListResponse struct {
	Body struct {
		Device  int                   `json:"device" example:"0"`
		Formats []devices.VideoFormat `json:"formats"`
	}
}

type ControlListResponse struct {
	Body struct {
		Device   int                   `json:"device" example:"0"`
		Controls []devices.ControlInfo `json:"controls"`
	}
}

type ControlValueResponse struct {
	Body struct {
		Device  int    `json:"device" example:"0"`
		Control string `json:"control" example:"brightness"`
		Value   int    `json:"value" example:"128"`
	}
}

type SetControlInput struct {
	ControlPathInput
	Body struct {
		Value any `json:"value" doc:"Integer for range and menu controls, boolean or 0/1 for boolean controls"`
	}
}

// Advanced control models
type AdvancedListResponse struct {
	Body struct {
		Device   int                            `json:"device" example:"0"`
		Controls []controls.AdvancedControlInfo `json:"controls"`
	}
}

type SetAutoInput struct {
	ControlPathInput
	Body struct {
		Enabled bool `json:"enabled" doc:"True for automatic, false for manual"`
	}
}

type AutoAdjustInput struct {
	DeviceIndexInput
	Target string `path:"target" enum:"exposure,white-balance" doc:"What to auto-adjust"`
}

type StatusData struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message,omitempty"`
}

type StatusResponse struct {
	Body StatusData
}

// Profile models
type ProfileNameInput struct {
	Name string `path:"name" example:"daylight" doc:"Profile name"`
}

type ProfileListResponse struct {
	Body struct {
		Profiles []string `json:"profiles"`
	}
}

type ProfileResponse struct {
	Body struct {
		Name     string           `json:"name" example:"daylight"`
		Controls controls.Profile `json:"controls"`
	}
}

type CreateProfileInput struct {
	Body struct {
		Name   string `json:"name" minLength:"1" example:"daylight" doc:"Profile name"`
		Device int    `json:"device" minimum:"0" example:"0" doc:"Device to snapshot"`
	}
}

type PutProfileInput struct {
	ProfileNameInput
	Body struct {
		Controls controls.Profile `json:"controls"`
	}
}

type ApplyProfileInput struct {
	ProfileNameInput
	Body struct {
		Device int `json:"device" minimum:"0" example:"0"`
	}
}

// Error history models
type ErrorHistoryResponse struct {
	Body struct {
		Errors []deverr.Record `json:"errors"`
		Stats  deverr.Stats    `json:"stats"`
	}
}

// Cache models
type CacheStatsResponse struct {
	Body struct {
		Caches      map[string]metrics.CacheStats `json:"caches"`
		DevicesTTL  string                        `json:"devices_ttl" example:"1m0s"`
		FormatsTTL  string                        `json:"formats_ttl" example:"5m0s"`
		ControlsTTL string                        `json:"controls_ttl" example:"30s"`
	}
}

// Log models
type LogsInput struct {
	Limit   int    `query:"limit" minimum:"0" default:"200" doc:"Newest entries to return; 0 for all"`
	Module  string `query:"module" doc:"Only entries from this module"`
	Device  int    `query:"device" minimum:"-1" default:"-1" doc:"Only entries about this device; -1 for all"`
	Control string `query:"control" doc:"Only entries about this control"`
	Level   string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
}

type LogsResponse struct {
	Body struct {
		Entries []logging.LogEntry `json:"entries"`
	}
}
