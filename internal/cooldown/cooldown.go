// Package cooldown suppresses repeated relaying of magic packets for the same
// target within a time window.
package cooldown

import (
	"time"

	"wolrelay/internal/wol"
)

// DefaultWindow is used when no window is configured.
const DefaultWindow = 5 * time.Second

// Cache maps target addresses to the time they were last relayed.
//
// A Cache is owned by exactly one relay goroutine and is not safe for
// concurrent use.
type Cache struct {
	window  time.Duration
	entries map[wol.Target]time.Time
}

// New creates a cache with the given window. A non-positive window falls
// back to DefaultWindow.
func New(window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache{
		window:  window,
		entries: make(map[wol.Target]time.Time),
	}
}

// ShouldRelay reports whether a packet for target may be relayed at now.
// A true result records now as the target's last relay time; a false result
// leaves the cache unchanged.
func (c *Cache) ShouldRelay(target wol.Target, now time.Time) bool {
	if last, ok := c.entries[target]; ok {
		if now.Sub(last) < c.window {
			return false
		}
		delete(c.entries, target)
	}
	c.entries[target] = now
	return true
}

// Window returns the configured cooldown window.
func (c *Cache) Window() time.Duration {
	return c.window
}

// Len returns the number of tracked targets, expired or not.
func (c *Cache) Len() int {
	return len(c.entries)
}
