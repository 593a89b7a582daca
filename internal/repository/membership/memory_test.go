package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/geo-guardian/internal/domain/track"
)

// TestMemoryRepository_GetUnknownDevice returns ErrNotFound before any report.
func TestMemoryRepository_GetUnknownDevice(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()

	_, err := repo.Get(context.Background(), "ab")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestMemoryRepository_SetAndGet round-trips a zone set.
func TestMemoryRepository_SetAndGet(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ab", track.NewZoneSet("Casa", "Parque")))

	zones, err := repo.Get(ctx, "ab")
	require.NoError(t, err)
	require.True(t, zones.Equal(track.NewZoneSet("Casa", "Parque")))

	// Devices are independent.
	_, err = repo.Get(ctx, "cd")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestMemoryRepository_CopiesOnBothSides ensures stored sets cannot be
// mutated through retained or returned references.
func TestMemoryRepository_CopiesOnBothSides(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	original := track.NewZoneSet("Casa")
	require.NoError(t, repo.Set(ctx, "ab", original))

	// Mutating the caller's set must not affect the stored one.
	original["Parque"] = struct{}{}

	stored, err := repo.Get(ctx, "ab")
	require.NoError(t, err)
	require.True(t, stored.Equal(track.NewZoneSet("Casa")))

	// Mutating the returned set must not affect later reads.
	stored["Escuela"] = struct{}{}

	again, err := repo.Get(ctx, "ab")
	require.NoError(t, err)
	require.True(t, again.Equal(track.NewZoneSet("Casa")))
}
