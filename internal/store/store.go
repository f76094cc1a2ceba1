// Package store provides persistence for chat session projections.
package store

import (
	"context"

	"github.com/cbag-ai/cbag-web/internal/domain"
)

// Repository defines the interface for persisting per-device session state.
// Only the identity and the trial counter are stored; transcripts never
// touch the database.
type Repository interface {
	// LoadProfile retrieves the persisted projection for a device. A missing
	// row yields (nil, nil). Corrupt rows degrade to anonymous zero-use
	// defaults instead of failing the session.
	LoadProfile(ctx context.Context, deviceID string) (*domain.Profile, error)

	// SaveProfile creates or updates the projection for a device,
	// overwriting any prior value.
	SaveProfile(ctx context.Context, profile *domain.Profile) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
