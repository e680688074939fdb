package storage

import (
	"sync"
	"time"

	"weather-wallpaper/internal/engine"
)

// Applied describes the wallpaper currently on screen.
type Applied struct {
	engine.Selection
	Weather   engine.Condition `json:"weather"`
	AppliedAt time.Time        `json:"applied_at"`
}

// Cache holds the state carried between polling cycles: what was applied last
// and the last weather seen. The search itself stays stateless.
type Cache struct {
	mu        sync.RWMutex
	applied   Applied
	hasApply  bool
	condition engine.Condition
}

func NewCache() *Cache {
	return &Cache{condition: engine.Clear}
}

func (c *Cache) Applied() (Applied, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.applied, c.hasApply
}

// AppliedPath is "" until something has been applied.
func (c *Cache) AppliedPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.applied.Path
}

func (c *Cache) SetApplied(a Applied) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied = a
	c.hasApply = true
}

func (c *Cache) Condition() engine.Condition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.condition
}

func (c *Cache) SetCondition(cond engine.Condition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.condition = cond
}
