// Package profile defines the orchestrator's view of the external profile
// service. Only wallet resolution is needed here; profile management itself
// lives outside this system.
package profile

import (
	"context"

	"github.com/google/uuid"
)

// Lookup resolves investor profiles to their wallet addresses
type Lookup interface {
	GetWalletID(ctx context.Context, profileID uuid.UUID) (string, error)
}

// ErrProfileNotFound indicates an unknown profile id
type ErrProfileNotFound struct {
	ProfileID uuid.UUID
}

func (e ErrProfileNotFound) Error() string {
	return "profile not found: " + e.ProfileID.String()
}

// Is matches any ErrProfileNotFound when the target carries a nil id
func (e ErrProfileNotFound) Is(target error) bool {
	t, ok := target.(ErrProfileNotFound)
	if !ok {
		return false
	}
	if t.ProfileID == uuid.Nil {
		return true
	}
	return e.ProfileID == t.ProfileID
}
