//go:build linux

package cache

import (
	"context"

	"github.com/smazurov/camctl/pkg/linuxav/hotplug"
	"github.com/smazurov/camctl/pkg/linuxav/v4l2"
)

// WatchHotplug invalidates on kernel uevents for video nodes until ctx is
// done.
func (c *Cache) WatchHotplug(ctx context.Context) error {
	c.logger.Debug("Watching for camera hotplug")
	return hotplug.Watch(ctx, func(ev hotplug.Event) {
		index, ok := ev.VideoIndex()
		if !ok {
			return
		}
		c.handleHotplug(ev.Action, index, v4l2.DevicePath(index))
	})
}
