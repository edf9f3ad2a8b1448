//go:build !linux

package cache

import (
	"context"

	"github.com/smazurov/camctl/internal/deverr"
)

// WatchHotplug is only implemented on Linux.
func (c *Cache) WatchHotplug(ctx context.Context) error {
	return deverr.New(deverr.KindPlatformNotSupported, "hotplug monitoring requires linux", nil)
}
