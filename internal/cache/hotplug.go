package cache

import (
	"github.com/smazurov/camctl/internal/events"
)

// handleHotplug drops the device list and the node's entries, then
// publishes a DeviceHotplugEvent.
func (c *Cache) handleHotplug(action string, index int, path string) {
	c.mu.RLock()
	c.devices.purge()
	c.mu.RUnlock()
	c.Invalidate(index)

	c.logger.Info("Camera hotplug", "action", action, "device", index, "path", path)
	c.bus.Publish(events.DeviceHotplugEvent{
		Action:    action,
		Index:     index,
		Path:      path,
		Timestamp: events.Now(),
	})
}
