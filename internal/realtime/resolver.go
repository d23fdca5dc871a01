package realtime

import (
	"context"
	"fmt"

	"github.com/nfrund/gymhub/internal/domain"
)

// ErrNoRoom is returned for admin accounts, which never join a gym room.
var ErrNoRoom = fmt.Errorf("%w: admin accounts have no gym room", domain.ErrForbidden)

// Resolver computes the room a user belongs to.
type Resolver struct {
	lookup domain.AffiliationLookup
}

// NewResolver creates a resolver backed by the affiliation directory.
func NewResolver(lookup domain.AffiliationLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the gym room for userID acting as role. Gym accounts are
// their own room; trainers and members use their current affiliation.
func (r *Resolver) Resolve(ctx context.Context, userID string, role domain.Role) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: missing user id", domain.ErrForbidden)
	}

	switch role {
	case domain.RoleGym:
		return userID, nil
	case domain.RoleTrainer, domain.RoleMember:
		gymID, err := r.lookup.GymForUser(ctx, userID, role)
		if err != nil {
			return "", fmt.Errorf("lookup affiliation of %s: %w", userID, err)
		}
		if gymID == "" {
			return "", fmt.Errorf("%w: %s %s", domain.ErrNotInGym, role, userID)
		}
		return gymID, nil
	case domain.RoleAdmin:
		return "", ErrNoRoom
	default:
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, role)
	}
}

// ResolveIdentity is Resolve for an authenticated caller.
func (r *Resolver) ResolveIdentity(ctx context.Context, id domain.Identity) (string, error) {
	return r.Resolve(ctx, id.UserID, id.Role)
}

// RequireMember checks that the caller belongs to gymID.
func (r *Resolver) RequireMember(ctx context.Context, id domain.Identity, gymID string) error {
	room, err := r.ResolveIdentity(ctx, id)
	if err != nil {
		return err
	}
	if room != gymID {
		return fmt.Errorf("%w: %s does not belong to gym %s", domain.ErrForbidden, id.UserID, gymID)
	}
	return nil
}
