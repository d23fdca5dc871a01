package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.AffiliationRepository = (*Directory)(nil)

type affKey struct {
	userID string
	role   domain.Role
}

// Directory is an in-memory affiliation directory, optionally seeded from a
// JSON file.
type Directory struct {
	mu   sync.RWMutex
	affs map[affKey]domain.Affiliation
}

// NewDirectory returns a directory holding affs.
func NewDirectory(affs ...domain.Affiliation) *Directory {
	d := &Directory{affs: make(map[affKey]domain.Affiliation)}
	for _, a := range affs {
		d.affs[affKey{a.UserID, a.Role}] = a
	}
	return d
}

// GymForUser implements domain.AffiliationLookup.
func (d *Directory) GymForUser(_ context.Context, userID string, role domain.Role) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.affs[affKey{userID, role}].GymID, nil
}

// SetAffiliation implements domain.AffiliationRepository.
func (d *Directory) SetAffiliation(_ context.Context, a domain.Affiliation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.affs[affKey{a.UserID, a.Role}] = a
	return nil
}

// ClearAffiliation implements domain.AffiliationRepository.
func (d *Directory) ClearAffiliation(_ context.Context, userID string, role domain.Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := affKey{userID, role}
	if _, ok := d.affs[k]; !ok {
		return fmt.Errorf("affiliation of %s: %w", userID, domain.ErrNotFound)
	}
	delete(d.affs, k)
	return nil
}

// ListAffiliated implements domain.AffiliationRepository.
func (d *Directory) ListAffiliated(_ context.Context, gymID string, roles ...domain.Role) ([]domain.Affiliation, error) {
	d.mu.RLock()
	out := lo.Filter(lo.Values(d.affs), func(a domain.Affiliation, _ int) bool {
		return a.GymID == gymID && (len(roles) == 0 || lo.Contains(roles, a.Role))
	})
	d.mu.RUnlock()

	sortAffiliations(out)
	return out, nil
}

func sortAffiliations(affs []domain.Affiliation) {
	sort.Slice(affs, func(i, j int) bool {
		if affs[i].Role != affs[j].Role {
			return affs[i].Role < affs[j].Role
		}
		return affs[i].UserID < affs[j].UserID
	})
}

// Replace swaps the whole directory content and returns the previous
// affiliations that were dropped or now point at another gym.
func (d *Directory) Replace(affs []domain.Affiliation) []domain.Affiliation {
	next := make(map[affKey]domain.Affiliation, len(affs))
	for _, a := range affs {
		next[affKey{a.UserID, a.Role}] = a
	}
	d.mu.Lock()
	prev := d.affs
	d.affs = next
	d.mu.Unlock()

	changed := lo.Filter(lo.Values(prev), func(old domain.Affiliation, _ int) bool {
		cur, ok := next[affKey{old.UserID, old.Role}]
		return !ok || cur.GymID != old.GymID
	})
	sortAffiliations(changed)
	return changed
}

// Len returns the number of affiliations.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.affs)
}

// DirectoryFile is the on-disk seed format.
type DirectoryFile struct {
	Affiliations []domain.Affiliation `json:"affiliations" validate:"dive"`
}

var fileValidator = validator.New()

// ReadDirectoryFile parses and validates a seed file from fs.
func ReadDirectoryFile(fs afero.Fs, path string) ([]domain.Affiliation, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}
	var f DirectoryFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse directory file %s: %w", path, err)
	}
	if err := fileValidator.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid directory file %s: %w", path, err)
	}

	seen := make(map[affKey]struct{}, len(f.Affiliations))
	for _, a := range f.Affiliations {
		k := affKey{a.UserID, a.Role}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("invalid directory file %s: %s %s listed twice", path, a.Role, a.UserID)
		}
		seen[k] = struct{}{}
	}
	return f.Affiliations, nil
}

// LoadDirectory builds a directory from a seed file.
func LoadDirectory(fs afero.Fs, path string) (*Directory, error) {
	affs, err := ReadDirectoryFile(fs, path)
	if err != nil {
		return nil, err
	}
	return NewDirectory(affs...), nil
}
