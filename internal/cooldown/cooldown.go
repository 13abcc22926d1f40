// Package cooldown suppresses repeat alerts for a venue/instrument pair
// during a per-venue window. The in-memory tracker is the default; the
// Redis tracker survives restarts and is shared across replicas.
package cooldown

import (
	"context"

	"github.com/akavalov/fairwatch/internal/domain"
)

// Tracker gates alert emission per key.
type Tracker interface {
	// Mark starts the venue's cooldown window for key. Marking an already
	// active key restarts the window.
	Mark(ctx context.Context, key domain.AlertKey) error

	// IsActive reports whether key is inside its cooldown window.
	IsActive(ctx context.Context, key domain.AlertKey) (bool, error)

	// Release clears key's cooldown early. Releasing an inactive key is a
	// no-op.
	Release(ctx context.Context, key domain.AlertKey) error

	Close() error
}
