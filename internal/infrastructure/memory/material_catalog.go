package memory

import (
	"context"
	"sync"
)

// MaterialCatalog is a fixed set of known material ids
type MaterialCatalog struct {
	mu        sync.RWMutex
	materials map[string]struct{}
}

// NewMaterialCatalog creates a catalog holding the given ids
func NewMaterialCatalog(materialIDs ...string) *MaterialCatalog {
	c := &MaterialCatalog{materials: make(map[string]struct{}, len(materialIDs))}
	c.Add(materialIDs...)
	return c
}

// Add registers material ids
func (c *MaterialCatalog) Add(materialIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range materialIDs {
		c.materials[id] = struct{}{}
	}
}

// Exists reports whether the material is known
func (c *MaterialCatalog) Exists(_ context.Context, materialID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.materials[materialID]
	return ok, nil
}
