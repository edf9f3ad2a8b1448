package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camctl/internal/api/models"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List the video capture devices that can be opened",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.DeviceListResponse, error) {
		list, err := s.cache.ListDevices(ctx)
		if err != nil {
			return nil, s.fail(err, -1)
		}
		return &models.DeviceListResponse{
			Body: models.DeviceListData{Devices: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "batch-device-info",
		Method:      http.MethodGet,
		Path:        "/api/devices/batch",
		Summary:     "Batch Device Info",
		Description: "Formats and controls of several devices, fetched in parallel",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *models.BatchInput) (*models.BatchResponse, error) {
		indices := input.Indices
		if len(indices) == 0 {
			list, err := s.cache.ListDevices(ctx)
			if err != nil {
				return nil, s.fail(err, -1)
			}
			for _, d := range list {
				indices = append(indices, d.Index)
			}
		}
		resp := &models.BatchResponse{}
		resp.Body.Devices = s.cache.BatchDeviceInfo(ctx, indices)
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-formats",
		Method:      http.MethodGet,
		Path:        "/api/devices/{index}/formats",
		Summary:     "List Formats",
		Description: "One entry per pixel format, resolution and frame rate",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *models.DeviceIndexInput) (*models.FormatListResponse, error) {
		formats, err := s.cache.GetFormats(ctx, input.Index)
		if err != nil {
			return nil, s.fail(err, input.Index)
		}
		resp := &models.FormatListResponse{}
		resp.Body.Device = input.Index
		resp.Body.Formats = formats
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-controls",
		Method:      http.MethodGet,
		Path:        "/api/devices/{index}/controls",
		Summary:     "List Controls",
		Description: "Controls in backend-native units, tagged with where the numbers came from",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *models.DeviceIndexInput) (*models.ControlListResponse, error) {
		list, err := s.cache.GetControls(ctx, input.Index)
		if err != nil {
			return nil, s.fail(err, input.Index)
		}
		resp := &models.ControlListResponse{}
		resp.Body.Device = input.Index
		resp.Body.Controls = list
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-control",
		Method:      http.MethodGet,
		Path:        "/api/devices/{index}/controls/{name}",
		Summary:     "Get Control",
		Description: "Read one control's current value from the device",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *models.ControlPathInput) (*models.ControlValueResponse, error) {
		value, err := s.controller.GetControl(ctx, input.Index, input.Name)
		if err != nil {
			return nil, s.fail(err, input.Index)
		}
		return controlValue(input.Index, input.Name, value), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-control",
		Method:      http.MethodPut,
		Path:        "/api/devices/{index}/controls/{name}",
		Summary:     "Set Control",
		Description: "Validate a value against the live range and the control's dependencies, then write it",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 412, 422, 500},
	}, func(ctx context.Context, input *models.SetControlInput) (*models.ControlValueResponse, error) {
		if err := s.manager.SetControlWithValidation(ctx, input.Index, input.Name, input.Body.Value); err != nil {
			return nil, toHTTPError(err)
		}
		s.cache.InvalidateControls(input.Index)
		value, err := s.controller.GetControl(ctx, input.Index, input.Name)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return controlValue(input.Index, input.Name, value), nil
	})
}

func controlValue(index int, name string, value int) *models.ControlValueResponse {
	resp := &models.ControlValueResponse{}
	resp.Body.Device = index
	resp.Body.Control = name
	resp.Body.Value = value
	return resp
}
