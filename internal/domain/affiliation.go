package domain

import "context"

// Affiliation binds a trainer or member to the gym they currently belong to.
type Affiliation struct {
	UserID string `json:"userId" validate:"required"`
	Role   Role   `json:"role" validate:"required,oneof=gym trainer member"`
	GymID  string `json:"gymId" validate:"required"`
	Name   string `json:"name,omitempty"`
}

// AffiliationLookup answers which gym a user belongs to. An empty gym id with
// a nil error means the user has no affiliation.
type AffiliationLookup interface {
	GymForUser(ctx context.Context, userID string, role Role) (string, error)
}

// AffiliationRepository is the writable affiliation directory.
type AffiliationRepository interface {
	AffiliationLookup
	SetAffiliation(ctx context.Context, a Affiliation) error
	// ClearAffiliation removes the user's affiliation. It returns ErrNotFound
	// when the user had none.
	ClearAffiliation(ctx context.Context, userID string, role Role) error
	// ListAffiliated returns everyone affiliated with gymID having one of roles.
	ListAffiliated(ctx context.Context, gymID string, roles ...Role) ([]Affiliation, error)
}
