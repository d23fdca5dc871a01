package database

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.AffiliationRepository = (*AffiliationStore)(nil)

// AffiliationStore keeps one affiliation row per (user, role), keyed by
// the record id affiliation:[user, role].
type AffiliationStore struct {
	client   Client[affiliationRecord]
	validate *validator.Validate
}

// NewAffiliationStore creates a store on conn.
func NewAffiliationStore(conn DBConnection) (*AffiliationStore, error) {
	c, err := NewClient[affiliationRecord](conn)
	if err != nil {
		return nil, err
	}
	return &AffiliationStore{client: c, validate: validator.New()}, nil
}

func affiliationKey(userID string, role domain.Role) map[string]any {
	return map[string]any{"user": userID, "role": string(role)}
}

// GymForUser implements domain.AffiliationLookup.
func (s *AffiliationStore) GymForUser(ctx context.Context, userID string, role domain.Role) (string, error) {
	rec, err := s.client.QueryOne(ctx,
		"SELECT * FROM type::thing('affiliation', [$user, $role])", affiliationKey(userID, role))
	if err != nil {
		return "", fmt.Errorf("gym for %s: %w", userID, err)
	}
	if rec == nil {
		return "", nil
	}
	return rec.GymID, nil
}

// SetAffiliation implements domain.AffiliationRepository.
func (s *AffiliationStore) SetAffiliation(ctx context.Context, a domain.Affiliation) error {
	if err := s.validate.Struct(a); err != nil {
		return NewDBError(ErrInvalidInput, fmt.Sprintf("affiliation: %v", err))
	}
	params := affiliationKey(a.UserID, a.Role)
	params["data"] = affiliationRecord{UserID: a.UserID, Role: string(a.Role), GymID: a.GymID, Name: a.Name}
	if err := s.client.Execute(ctx, "UPSERT type::thing('affiliation', [$user, $role]) CONTENT $data", params); err != nil {
		return fmt.Errorf("set affiliation: %w", err)
	}
	return nil
}

// ClearAffiliation implements domain.AffiliationRepository.
func (s *AffiliationStore) ClearAffiliation(ctx context.Context, userID string, role domain.Role) error {
	rows, err := s.client.Mutate(ctx,
		"DELETE type::thing('affiliation', [$user, $role]) RETURN BEFORE", affiliationKey(userID, role))
	if err != nil {
		return fmt.Errorf("clear affiliation: %w", err)
	}
	if len(rows) == 0 {
		return NewDBError(ErrNotFound, "affiliation of "+userID)
	}
	return nil
}

// ListAffiliated implements domain.AffiliationRepository.
func (s *AffiliationStore) ListAffiliated(ctx context.Context, gymID string, roles ...domain.Role) ([]domain.Affiliation, error) {
	query := "SELECT * FROM affiliation WHERE gym_id = $gym"
	params := map[string]any{"gym": gymID}
	if len(roles) > 0 {
		query += " AND role IN $roles"
		params["roles"] = lo.Map(roles, func(r domain.Role, _ int) string { return string(r) })
	}
	query += " ORDER BY role, user_id"

	rows, err := s.client.Query(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("list affiliated: %w", err)
	}
	return lo.Map(rows, func(r affiliationRecord, _ int) domain.Affiliation { return r.toDomain() }), nil
}
