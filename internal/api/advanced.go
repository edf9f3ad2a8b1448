package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camctl/internal/api/models"
)

func (s *Server) registerAdvancedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-advanced-controls",
		Method:      http.MethodGet,
		Path:        "/api/devices/{index}/advanced",
		Summary:     "List Advanced Controls",
		Description: "Registry controls the device reports, with type, menu items, dependencies and auto state",
		Tags:        []string{"advanced"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *models.DeviceIndexInput) (*models.AdvancedListResponse, error) {
		list, err := s.manager.GetAvailableControls(ctx, input.Index)
		if err != nil {
			return nil, toHTTPError(err)
		}
		resp := &models.AdvancedListResponse{}
		resp.Body.Device = input.Index
		resp.Body.Controls = list
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-auto-mode",
		Method:      http.MethodPut,
		Path:        "/api/devices/{index}/advanced/{name}/auto",
		Summary:     "Set Auto Mode",
		Description: "Switch a control between automatic and manual",
		Tags:        []string{"advanced"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *models.SetAutoInput) (*models.StatusResponse, error) {
		var err error
		if input.Body.Enabled {
			err = s.manager.EnableAutoMode(ctx, input.Index, input.Name)
		} else {
			err = s.manager.DisableAutoMode(ctx, input.Index, input.Name)
		}
		s.cache.InvalidateControls(input.Index)
		if err != nil {
			return nil, toHTTPError(err)
		}
		mode := "manual"
		if input.Body.Enabled {
			mode = "automatic"
		}
		return &models.StatusResponse{Body: models.StatusData{
			Status:  "ok",
			Message: fmt.Sprintf("%s is now %s", input.Name, mode),
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "auto-adjust",
		Method:      http.MethodPost,
		Path:        "/api/devices/{index}/auto-adjust/{target}",
		Summary:     "Auto Adjust",
		Description: "Enable automatic exposure or white balance and wait for it to settle",
		Tags:        []string{"advanced"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500, 504},
	}, func(ctx context.Context, input *models.AutoAdjustInput) (*models.StatusResponse, error) {
		var err error
		switch input.Target {
		case "exposure":
			err = s.manager.AutoAdjustExposure(ctx, input.Index)
		case "white-balance":
			err = s.manager.AutoAdjustWhiteBalance(ctx, input.Index)
		default:
			return nil, huma.Error422UnprocessableEntity("unknown auto-adjust target " + input.Target)
		}
		s.cache.InvalidateControls(input.Index)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.StatusResponse{Body: models.StatusData{Status: "ok", Message: input.Target + " settled"}}, nil
	})
}
