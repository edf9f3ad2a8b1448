// Package cache keeps short-lived copies of device listings, formats and
// control snapshots in front of a devices.Controller, and fans batch
// lookups out over a bounded worker pool.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/smazurov/camctl/internal/devices"
	"github.com/smazurov/camctl/internal/events"
	"github.com/smazurov/camctl/internal/logging"
	"github.com/smazurov/camctl/internal/metrics"
)

// Cache names used for metrics and stats.
const (
	NameDevices  = "devices"
	NameFormats  = "formats"
	NameControls = "controls"
)

// Source is what the cache reads through to.
type Source interface {
	ListDevices(ctx context.Context) ([]devices.DeviceInfo, error)
	GetFormats(ctx context.Context, index int) ([]devices.VideoFormat, error)
	GetControls(ctx context.Context, index int) ([]devices.ControlInfo, error)
	SetControl(ctx context.Context, index int, name string, value int) error
}

// Config holds TTLs and pool sizing. A TTL of zero or less disables that
// cache.
type Config struct {
	DevicesTTL  time.Duration
	FormatsTTL  time.Duration
	ControlsTTL time.Duration
	Size        int
	Workers     int
	CallTimeout time.Duration
}

// DefaultConfig returns the stock TTLs: 60s devices, 300s formats, 30s
// controls.
func DefaultConfig() Config {
	return Config{
		DevicesTTL:  60 * time.Second,
		FormatsTTL:  300 * time.Second,
		ControlsTTL: 30 * time.Second,
		Size:        128,
		Workers:     4,
		CallTimeout: 5 * time.Second,
	}
}

// ttlCache is one expiring LRU plus hit/miss accounting. A nil lru means
// caching is off and every lookup goes to the loader.
type ttlCache[K comparable, V any] struct {
	name  string
	lru   *expirable.LRU[K, V]
	group singleflight.Group
}

func newTTLCache[K comparable, V any](name string, size int, ttl time.Duration) *ttlCache[K, V] {
	c := &ttlCache[K, V]{name: name}
	if ttl > 0 {
		c.lru = expirable.NewLRU[K, V](size, nil, ttl)
	}
	metrics.SetCacheEntries(name, 0)
	return c
}

func (c *ttlCache[K, V]) get(key K, load func() (V, error)) (V, error) {
	if c.lru == nil {
		return load()
	}
	if v, ok := c.lru.Get(key); ok {
		metrics.IncCacheHit(c.name)
		return v, nil
	}
	metrics.IncCacheMiss(c.name)

	// concurrent misses for one key share a single backend call
	v, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		c.lru.Add(key, v)
		metrics.SetCacheEntries(c.name, c.lru.Len())
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *ttlCache[K, V]) remove(key K) {
	if c.lru == nil {
		return
	}
	c.lru.Remove(key)
	metrics.SetCacheEntries(c.name, c.lru.Len())
}

func (c *ttlCache[K, V]) purge() {
	if c.lru == nil {
		return
	}
	c.lru.Purge()
	metrics.SetCacheEntries(c.name, 0)
}

// Cache fronts a Source for listing endpoints. Control writes made through
// SetControl, and any ControlChangedEvent or AutoModeChangedEvent on the bus,
// drop the device's cached controls.
type Cache struct {
	src    Source
	bus    *events.Bus
	logger *slog.Logger
	unsubs []func()

	mu       sync.RWMutex
	cfg      Config
	devices  *ttlCache[struct{}, []devices.DeviceInfo]
	formats  *ttlCache[int, []devices.VideoFormat]
	controls *ttlCache[int, []devices.ControlInfo]
}

// New creates a cache over src. bus may be nil.
func New(src Source, cfg Config, bus *events.Bus) *Cache {
	c := &Cache{
		src:    src,
		bus:    bus,
		logger: logging.GetLogger("cache"),
	}
	c.configure(cfg)
	c.unsubs = []func(){
		bus.Subscribe(func(e events.ControlChangedEvent) { c.InvalidateControls(e.Device) }),
		bus.Subscribe(func(e events.AutoModeChangedEvent) { c.InvalidateControls(e.Device) }),
	}
	return c
}

// Close stops listening on the bus.
func (c *Cache) Close() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}

func (c *Cache) configure(cfg Config) {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	c.cfg = cfg
	c.devices = newTTLCache[struct{}, []devices.DeviceInfo](NameDevices, 1, cfg.DevicesTTL)
	c.formats = newTTLCache[int, []devices.VideoFormat](NameFormats, cfg.Size, cfg.FormatsTTL)
	c.controls = newTTLCache[int, []devices.ControlInfo](NameControls, cfg.Size, cfg.ControlsTTL)
}

// Reconfigure swaps in new TTLs and sizes. Cached entries are dropped.
func (c *Cache) Reconfigure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configure(cfg)
	c.logger.Info("Cache reconfigured",
		"devices_ttl", cfg.DevicesTTL, "formats_ttl", cfg.FormatsTTL, "controls_ttl", cfg.ControlsTTL)
}

// Config returns the active configuration.
func (c *Cache) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// ListDevices returns the device list, from cache when fresh.
func (c *Cache) ListDevices(ctx context.Context) ([]devices.DeviceInfo, error) {
	c.mu.RLock()
	tc := c.devices
	c.mu.RUnlock()

	v, err := tc.get(struct{}{}, func() ([]devices.DeviceInfo, error) {
		return c.src.ListDevices(ctx)
	})
	return slices.Clone(v), err
}

// GetFormats returns the formats of one device, from cache when fresh.
func (c *Cache) GetFormats(ctx context.Context, index int) ([]devices.VideoFormat, error) {
	c.mu.RLock()
	tc := c.formats
	c.mu.RUnlock()

	v, err := tc.get(index, func() ([]devices.VideoFormat, error) {
		return c.src.GetFormats(ctx, index)
	})
	return slices.Clone(v), err
}

// GetControls returns the controls of one device, from cache when fresh.
func (c *Cache) GetControls(ctx context.Context, index int) ([]devices.ControlInfo, error) {
	c.mu.RLock()
	tc := c.controls
	c.mu.RUnlock()

	v, err := tc.get(index, func() ([]devices.ControlInfo, error) {
		return c.src.GetControls(ctx, index)
	})
	return slices.Clone(v), err
}

// SetControl writes through to the source and drops the device's cached
// controls on success.
func (c *Cache) SetControl(ctx context.Context, index int, name string, value int) error {
	if err := c.src.SetControl(ctx, index, name, value); err != nil {
		return err
	}
	c.InvalidateControls(index)
	return nil
}

// InvalidateControls drops the controls cached for one device.
func (c *Cache) InvalidateControls(index int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.controls.remove(index)
}

// Invalidate drops the formats and controls cached for one device.
func (c *Cache) Invalidate(index int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.formats.remove(index)
	c.controls.remove(index)
	c.logger.Debug("Cache invalidated", "device", index)
}

// InvalidateAll drops everything.
func (c *Cache) InvalidateAll() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.devices.purge()
	c.formats.purge()
	c.controls.purge()
	c.logger.Debug("Cache cleared")
}

// Stats returns hit/miss counters per cache.
func (c *Cache) Stats() map[string]metrics.CacheStats {
	return map[string]metrics.CacheStats{
		NameDevices:  metrics.GetCacheStats(NameDevices),
		NameFormats:  metrics.GetCacheStats(NameFormats),
		NameControls: metrics.GetCacheStats(NameControls),
	}
}
