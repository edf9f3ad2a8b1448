package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/camctl/internal/events"
)

// sseEventTypes maps SSE event names to the bus events sent under them.
var sseEventTypes = map[string]any{
	"backend-fallback":  events.BackendFallbackEvent{},
	"control-changed":   events.ControlChangedEvent{},
	"auto-mode-changed": events.AutoModeChangedEvent{},
	"profile-applied":   events.ProfileAppliedEvent{},
	"error-recorded":    events.ErrorRecordedEvent{},
	"device-hotplug":    events.DeviceHotplugEvent{},
}

func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events/stream",
		Summary:     "Event Stream",
		Description: "Control writes, auto mode changes, profile applications, backend fallbacks, recorded errors and hotplug",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, sseEventTypes, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)
		unsubscribe := events.SubscribeAllToChannel(s.eventBus, eventCh)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
