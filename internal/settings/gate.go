// Package settings is the feature-flag gate consumed by the rest of the
// application.
package settings

import (
	"github.com/starford/mindadmin/internal/models"
	"github.com/starford/mindadmin/internal/store"
)

// Gate reads and writes the feature-flag singleton.
type Gate struct {
	store *store.Store
}

// New creates a Gate.
func New(st *store.Store) *Gate {
	return &Gate{store: st}
}

// Get returns the current flags. A missing or corrupt document yields the
// documented defaults: posting enabled, maintenance off.
func (g *Gate) Get() models.Settings {
	return g.store.Settings()
}

// Set persists both flags together as one document; there is no partial
// update of a single flag.
func (g *Gate) Set(s models.Settings) error {
	return g.store.SaveSettings(s)
}
