package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/camctl/internal/controls"
	"github.com/smazurov/camctl/internal/deverr"
)

var kindStatus = map[deverr.Kind]int{
	deverr.KindDeviceNotFound:         http.StatusNotFound,
	deverr.KindDeviceBusy:             http.StatusConflict,
	deverr.KindDevicePermissionDenied: http.StatusForbidden,
	deverr.KindDeviceDisconnected:     http.StatusServiceUnavailable,
	deverr.KindControlNotSupported:    http.StatusNotFound,
	deverr.KindControlOutOfRange:      http.StatusUnprocessableEntity,
	deverr.KindControlReadOnly:        http.StatusConflict,
	deverr.KindFormatNotSupported:     http.StatusUnprocessableEntity,
	deverr.KindResolutionNotSupported: http.StatusUnprocessableEntity,
	deverr.KindPlatformNotSupported:   http.StatusNotImplemented,
	deverr.KindDependencyMissing:      http.StatusPreconditionFailed,
	deverr.KindPermissionDenied:       http.StatusForbidden,
	deverr.KindIO:                     http.StatusBadGateway,
	deverr.KindTimeout:                http.StatusGatewayTimeout,
	deverr.KindUnknown:                http.StatusInternalServerError,
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind deverr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// toHTTPError turns a device error into a huma error carrying the
// user-facing message and the kind.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, controls.ErrProfileNotFound) {
		return huma.Error404NotFound(err.Error())
	}

	kind := deverr.KindOf(err)
	detail := &huma.ErrorDetail{
		Message:  err.Error(),
		Location: "kind",
		Value:    string(kind),
	}
	return huma.NewError(StatusFor(kind), deverr.MessageFor(kind), detail)
}

// fail records a device error in the history and converts it. Manager
// operations record their own failures and go straight to toHTTPError.
func (s *Server) fail(err error, device int) error {
	s.history.Record(err, map[string]any{"device": device})
	return toHTTPError(err)
}
