package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camctl/internal/api/models"
	"github.com/smazurov/camctl/internal/controls"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/api/profiles",
		Summary:     "List Profiles",
		Tags:        []string{"profiles"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ProfileListResponse, error) {
		resp := &models.ProfileListResponse{}
		resp.Body.Profiles = s.manager.ListProfiles()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-profile",
		Method:        http.MethodPost,
		Path:          "/api/profiles",
		Summary:       "Create Profile",
		Description:   "Snapshot the current controls and auto modes of a device",
		Tags:          []string{"profiles"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		Errors:        []int{401, 404, 422, 500},
	}, func(ctx context.Context, input *models.CreateProfileInput) (*models.ProfileResponse, error) {
		p, err := s.manager.CreateProfile(ctx, input.Body.Name, input.Body.Device)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return profileResponse(input.Body.Name, p), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/api/profiles/{name}",
		Summary:     "Get Profile",
		Tags:        []string{"profiles"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.ProfileNameInput) (*models.ProfileResponse, error) {
		p, ok := s.manager.GetProfile(input.Name)
		if !ok {
			return nil, toHTTPError(controls.ErrProfileNotFound)
		}
		return profileResponse(input.Name, p), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "put-profile",
		Method:      http.MethodPut,
		Path:        "/api/profiles/{name}",
		Summary:     "Store Profile",
		Description: "Create or replace a profile from explicit values",
		Tags:        []string{"profiles"},
		Security:    withAuth(),
		Errors:      []int{401, 422},
	}, func(_ context.Context, input *models.PutProfileInput) (*models.ProfileResponse, error) {
		if err := s.manager.PutProfile(input.Name, input.Body.Controls); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return profileResponse(input.Name, input.Body.Controls), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-profile",
		Method:        http.MethodDelete,
		Path:          "/api/profiles/{name}",
		Summary:       "Delete Profile",
		Tags:          []string{"profiles"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404},
	}, func(_ context.Context, input *models.ProfileNameInput) (*struct{}, error) {
		if err := s.manager.DeleteProfile(input.Name); err != nil {
			return nil, toHTTPError(err)
		}
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-profile",
		Method:      http.MethodPost,
		Path:        "/api/profiles/{name}/apply",
		Summary:     "Apply Profile",
		Description: "Restore auto modes, then every manual value. Failures do not stop the rest",
		Tags:        []string{"profiles"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 422, 500},
	}, func(ctx context.Context, input *models.ApplyProfileInput) (*models.StatusResponse, error) {
		err := s.manager.ApplyProfile(ctx, input.Name, input.Body.Device)
		s.cache.InvalidateControls(input.Body.Device)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.StatusResponse{Body: models.StatusData{Status: "ok", Message: "profile applied"}}, nil
	})
}

func profileResponse(name string, p controls.Profile) *models.ProfileResponse {
	resp := &models.ProfileResponse{}
	resp.Body.Name = name
	resp.Body.Controls = p
	return resp
}
