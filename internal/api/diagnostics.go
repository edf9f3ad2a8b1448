package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camctl/internal/api/models"
)

func (s *Server) registerDiagnosticsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-errors",
		Method:      http.MethodGet,
		Path:        "/api/errors",
		Summary:     "Error History",
		Description: "Recent device errors, newest last, with counts per kind",
		Tags:        []string{"diagnostics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ErrorHistoryResponse, error) {
		resp := &models.ErrorHistoryResponse{}
		resp.Body.Errors = s.history.Entries()
		resp.Body.Stats = s.history.Stats()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "clear-errors",
		Method:        http.MethodDelete,
		Path:          "/api/errors",
		Summary:       "Clear Error History",
		Tags:          []string{"diagnostics"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401},
	}, func(_ context.Context, _ *struct{}) (*struct{}, error) {
		s.history.Clear()
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-cache-stats",
		Method:      http.MethodGet,
		Path:        "/api/cache",
		Summary:     "Cache Statistics",
		Description: "Hits, misses and entries of the device, format and control caches",
		Tags:        []string{"diagnostics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.CacheStatsResponse, error) {
		cfg := s.cache.Config()
		resp := &models.CacheStatsResponse{}
		resp.Body.Caches = s.cache.Stats()
		resp.Body.DevicesTTL = cfg.DevicesTTL.String()
		resp.Body.FormatsTTL = cfg.FormatsTTL.String()
		resp.Body.ControlsTTL = cfg.ControlsTTL.String()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "clear-cache",
		Method:        http.MethodDelete,
		Path:          "/api/cache",
		Summary:       "Clear Caches",
		Description:   "Drop every cached device list, format list and control list",
		Tags:          []string{"diagnostics"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401},
	}, func(_ context.Context, _ *struct{}) (*struct{}, error) {
		s.cache.InvalidateAll()
		s.logger.Info("Caches cleared")
		return nil, nil
	})
}
