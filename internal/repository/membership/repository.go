package membership

import (
	"context"
	"errors"

	"github.com/oshokin/geo-guardian/internal/domain/track"
)

// Repository defines persistence operations for per-device zone membership.
// Membership for a device always equals the region set of the most recently
// processed location snapshot for that device.
type Repository interface {
	Get(ctx context.Context, deviceID string) (track.ZoneSet, error)
	Set(ctx context.Context, deviceID string, zones track.ZoneSet) error
}

// ErrNotFound is returned when a device has never reported membership yet.
var ErrNotFound = errors.New("membership not found")
