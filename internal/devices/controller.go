package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/events"
	"github.com/smazurov/camctl/internal/logging"
	"github.com/smazurov/camctl/internal/metrics"
)

// Mode says whether the controller runs on a native backend or only on the
// fallback.
type Mode int

const (
	// ModeNative uses the platform backend and retries failed calls on the
	// fallback.
	ModeNative Mode = iota
	// ModeDegraded uses the fallback backend only.
	ModeDegraded
)

func (m Mode) String() string {
	if m == ModeNative {
		return "native"
	}
	return "degraded"
}

// Controller is the entry point for device access. It is either
// Native(backend) with a fallback for failed calls, or Degraded(fallback).
type Controller struct {
	native   Backend
	fallback Backend
	mode     Mode
	bus      *events.Bus
	logger   *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithEventBus publishes BackendFallbackEvent and ControlChangedEvent.
func WithEventBus(bus *events.Bus) ControllerOption {
	return func(c *Controller) { c.bus = bus }
}

// New picks a backend for the running platform. If the native backend
// cannot be constructed it logs a warning and returns a degraded
// controller; it only fails when no backend at all can be built.
func New(opts Options, copts ...ControllerOption) (*Controller, error) {
	logger := logging.GetLogger("devices")
	fallback := NewFallbackBackend(opts)

	switch opts.Backend {
	case BackendMemory:
		return NewController(NewMemoryBackend(DemoDevices()...), nil, copts...), nil
	case BackendFallback:
		return NewController(nil, fallback, copts...), nil
	case BackendAuto, BackendNative:
	default:
		return nil, deverr.Newf(deverr.KindPlatformNotSupported, "unknown backend %q", opts.Backend)
	}

	native, err := newNativeBackend(opts)
	if err != nil {
		if opts.Backend == BackendNative {
			return nil, fmt.Errorf("native backend: %w", err)
		}
		logger.Warn("Native backend unavailable, using fallback", "error", err)
		return NewController(nil, fallback, copts...), nil
	}
	return NewController(native, fallback, copts...), nil
}

// NewController assembles a controller from explicit backends. A nil native
// backend yields a degraded controller; a nil fallback disables retries.
func NewController(native, fallback Backend, opts ...ControllerOption) *Controller {
	c := &Controller{
		native:   native,
		fallback: fallback,
		mode:     ModeNative,
		logger:   logging.GetLogger("devices"),
	}
	if native == nil {
		c.mode = ModeDegraded
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode reports Native or Degraded.
func (c *Controller) Mode() Mode { return c.mode }

// BackendName names the backend that answers first.
func (c *Controller) BackendName() string {
	if b := c.primary(); b != nil {
		return b.Name()
	}
	return "none"
}

func (c *Controller) primary() Backend {
	if c.mode == ModeNative {
		return c.native
	}
	return c.fallback
}

// Close releases backends that hold process-wide resources.
func (c *Controller) Close() error {
	var errs []error
	for _, b := range []Backend{c.native, c.fallback} {
		if closer, ok := b.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// ListDevices lists cameras. A native error or empty list is retried on the
// fallback.
func (c *Controller) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	return call(ctx, c, "list_devices", -1, func(b Backend) ([]DeviceInfo, error) {
		return b.ListDevices(ctx)
	})
}

// GetFormats lists the formats of one device.
func (c *Controller) GetFormats(ctx context.Context, index int) ([]VideoFormat, error) {
	return call(ctx, c, "get_formats", index, func(b Backend) ([]VideoFormat, error) {
		return b.GetFormats(ctx, index)
	})
}

// GetControls returns a fresh control snapshot for one device.
func (c *Controller) GetControls(ctx context.Context, index int) ([]ControlInfo, error) {
	return call(ctx, c, "get_controls", index, func(b Backend) ([]ControlInfo, error) {
		return b.GetControls(ctx, index)
	})
}

// GetControl returns the current value of one control by linear search over
// GetControls.
func (c *Controller) GetControl(ctx context.Context, index int, name string) (int, error) {
	controls, err := c.GetControls(ctx, index)
	if err != nil {
		return 0, err
	}
	ctrl, ok := FindControl(controls, name)
	if !ok {
		return 0, deverr.Newf(deverr.KindControlNotSupported, "device %d has no control %q", index, name).
			With("device", index).With("control", name)
	}
	return ctrl.Current, nil
}

// SetControl writes a control. A native failure that the fallback might
// handle (device missing, control unknown to the native API, I/O) is
// retried there; value-level rejections are returned as is.
func (c *Controller) SetControl(ctx context.Context, index int, name string, value int) error {
	if err := ctx.Err(); err != nil {
		return deverr.New(deverr.FromError(err), "set control", err)
	}

	primary := c.primary()
	if primary == nil {
		return deverr.Newf(deverr.KindPlatformNotSupported, "no backend available")
	}

	err := c.observe(primary, "set_control", func() error {
		return primary.SetControl(ctx, index, name, value)
	})
	if err != nil && c.mode == ModeNative && c.fallback != nil && retryOnFallback(err) {
		c.degraded("set_control", index, err)
		if ferr := c.observe(c.fallback, "set_control", func() error {
			return c.fallback.SetControl(ctx, index, name, value)
		}); ferr == nil {
			err = nil
		}
	}
	if err != nil {
		return classify(err, fmt.Sprintf("set %s=%d on device %d", name, value, index))
	}

	c.bus.Publish(events.ControlChangedEvent{
		Device:    index,
		Control:   name,
		Value:     value,
		Timestamp: events.Now(),
	})
	return nil
}

func call[T any](ctx context.Context, c *Controller, op string, index int, fn func(Backend) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, deverr.New(deverr.FromError(err), op, err)
	}

	primary := c.primary()
	if primary == nil {
		return nil, deverr.Newf(deverr.KindPlatformNotSupported, "no backend available")
	}

	var out []T
	err := c.observe(primary, op, func() error {
		var err error
		out, err = fn(primary)
		return err
	})
	if (err == nil && len(out) > 0) || c.mode != ModeNative || c.fallback == nil {
		if err != nil {
			return nil, classify(err, op)
		}
		return nonNil(out), nil
	}

	c.degraded(op, index, err)
	var fout []T
	ferr := c.observe(c.fallback, op, func() error {
		var err error
		fout, err = fn(c.fallback)
		return err
	})
	if ferr == nil && len(fout) > 0 {
		return fout, nil
	}
	// Neither backend could answer: the device is skipped, not failed.
	c.logger.Debug("No backend could answer", "operation", op, "device", index, "native_error", err, "fallback_error", ferr)
	return nonNil(out), nil
}

func (c *Controller) observe(b Backend, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	result := "ok"
	if err != nil {
		result = string(deverr.KindOf(err))
	}
	metrics.ObserveBackendCall(b.Name(), op, result, time.Since(start))
	return err
}

func (c *Controller) degraded(op string, index int, err error) {
	metrics.IncFallback(op)
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	c.logger.Debug("Retrying on fallback backend", "operation", op, "device", index, "error", errText)
	c.bus.Publish(events.BackendFallbackEvent{
		Operation: op,
		Device:    index,
		From:      c.native.Name(),
		To:        c.fallback.Name(),
		Error:     errText,
		Timestamp: events.Now(),
	})
}

func retryOnFallback(err error) bool {
	switch deverr.KindOf(err) {
	case deverr.KindControlOutOfRange, deverr.KindControlReadOnly,
		deverr.KindDevicePermissionDenied, deverr.KindPermissionDenied,
		deverr.KindDependencyMissing, deverr.KindTimeout:
		return false
	}
	return true
}

func classify(err error, message string) error {
	var de *deverr.Error
	if errors.As(err, &de) {
		return err
	}
	return deverr.Wrap(err, message)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
