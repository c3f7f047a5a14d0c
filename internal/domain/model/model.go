package model

import (
	"sync/atomic"
	"time"

	"w9-search/internal/domain/provider"
)

// FallbackModelID is advertised while no provider has reported any model yet.
const FallbackModelID = "no-models-available"

// Model is one chat model advertised by an upstream provider.
type Model struct {
	ID          string
	Provider    provider.Kind
	DisplayName string
	ContextSize int
	Free        bool
	SyncedAt    time.Time
}

// Catalog is an atomically replaceable snapshot of every known model.
// Readers never block a refresh.
type Catalog struct {
	snapshot atomic.Pointer[[]Model]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	c := &Catalog{}
	empty := make([]Model, 0)
	c.snapshot.Store(&empty)
	return c
}

// Replace swaps the full model list in one step.
func (c *Catalog) Replace(models []Model) {
	copied := make([]Model, len(models))
	copy(copied, models)
	c.snapshot.Store(&copied)
}

// Models returns the current snapshot.
func (c *Catalog) Models() []Model {
	return *c.snapshot.Load()
}

// ByProvider returns the snapshot filtered to one provider kind.
func (c *Catalog) ByProvider(kind provider.Kind) []Model {
	var out []Model
	for _, m := range c.Models() {
		if m.Provider == kind {
			out = append(out, m)
		}
	}
	return out
}

// Find returns the model with the exact id, if present.
func (c *Catalog) Find(id string) (Model, bool) {
	for _, m := range c.Models() {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
