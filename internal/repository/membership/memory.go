package membership

import (
	"context"
	"sync"

	"github.com/oshokin/geo-guardian/internal/domain/track"
)

// MemoryRepository keeps membership in process memory. Populated on the first
// report per device; state does not survive a restart.
type MemoryRepository struct {
	// mu protects concurrent access to the membership map.
	mu sync.RWMutex
	// zones maps device id to its current zone set.
	zones map[string]track.ZoneSet
}

// NewMemoryRepository creates an empty in-process membership store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		zones: make(map[string]track.ZoneSet),
	}
}

// Get returns the device's current membership.
func (r *MemoryRepository) Get(_ context.Context, deviceID string) (track.ZoneSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	zones, ok := r.zones[deviceID]
	if !ok {
		return nil, ErrNotFound
	}

	return zones.Clone(), nil
}

// Set replaces the device's membership.
func (r *MemoryRepository) Set(_ context.Context, deviceID string, zones track.ZoneSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.zones[deviceID] = zones.Clone()

	return nil
}
