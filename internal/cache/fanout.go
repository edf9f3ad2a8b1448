package cache

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smazurov/camctl/internal/devices"
)

// Result is the outcome of one FanOut call.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// FanOut calls fn for every index on at most workers goroutines, each call
// bounded by timeout. Failures are reported per index and do not cancel the
// other calls. Results keep the order of indices.
func FanOut[T any](ctx context.Context, indices []int, workers int, timeout time.Duration, fn func(context.Context, int) (T, error)) []Result[T] {
	results := make([]Result[T], len(indices))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, index := range indices {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			v, err := fn(callCtx, index)
			results[i] = Result[T]{Index: index, Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// DeviceSummary is the batch view of one device.
type DeviceSummary struct {
	Index    int                   `json:"index"`
	Formats  []devices.VideoFormat `json:"formats"`
	Controls []devices.ControlInfo `json:"controls"`
	Error    string                `json:"error,omitempty"`
}

// BatchDeviceInfo gathers formats and controls for several devices in
// parallel.
func (c *Cache) BatchDeviceInfo(ctx context.Context, indices []int) []DeviceSummary {
	cfg := c.Config()
	results := FanOut(ctx, indices, cfg.Workers, cfg.CallTimeout, func(ctx context.Context, index int) (DeviceSummary, error) {
		s := DeviceSummary{Index: index}
		formats, err := c.GetFormats(ctx, index)
		if err != nil {
			return s, err
		}
		controls, err := c.GetControls(ctx, index)
		if err != nil {
			return s, err
		}
		s.Formats = formats
		s.Controls = controls
		return s, nil
	})

	out := make([]DeviceSummary, len(results))
	for i, r := range results {
		out[i] = r.Value
		out[i].Index = r.Index
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			c.logger.Warn("Batch lookup failed", "device", r.Index, "error", r.Err)
		}
	}
	return out
}
