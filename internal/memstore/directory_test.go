package memstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/gymhub/internal/domain"
)

const seed = `{
  "affiliations": [
    {"userId": "t1", "role": "trainer", "gymId": "g1", "name": "Tess"},
    {"userId": "m1", "role": "member", "gymId": "g1", "name": "Max"},
    {"userId": "m2", "role": "member", "gymId": "g2"}
  ]
}`

func TestDirectory_LoadAndLookup(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/gymhub/directory.json", []byte(seed), 0o644))

	d, err := LoadDirectory(fs, "/etc/gymhub/directory.json")
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	ctx := context.Background()
	gym, err := d.GymForUser(ctx, "t1", domain.RoleTrainer)
	require.NoError(t, err)
	assert.Equal(t, "g1", gym)

	gym, err = d.GymForUser(ctx, "t1", domain.RoleMember)
	require.NoError(t, err)
	assert.Empty(t, gym, "lookup is keyed by role too")

	members, err := d.ListAffiliated(ctx, "g1", domain.RoleMember)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "m1", members[0].UserID)

	everyone, err := d.ListAffiliated(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, everyone, 2)
}

func TestDirectory_InvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"affiliations": [`},
		{"unknown role", `{"affiliations":[{"userId":"a","role":"admin","gymId":"g"}]}`},
		{"missing gym", `{"affiliations":[{"userId":"a","role":"member"}]}`},
		{"duplicate", `{"affiliations":[{"userId":"a","role":"member","gymId":"g"},{"userId":"a","role":"member","gymId":"h"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "dir.json", []byte(tt.content), 0o644))
			_, err := LoadDirectory(fs, "dir.json")
			assert.Error(t, err)
		})
	}

	_, err := LoadDirectory(afero.NewMemMapFs(), "missing.json")
	assert.Error(t, err)
}

func TestDirectory_SetAndClear(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory()

	require.NoError(t, d.SetAffiliation(ctx, domain.Affiliation{UserID: "m1", Role: domain.RoleMember, GymID: "g1"}))
	require.NoError(t, d.SetAffiliation(ctx, domain.Affiliation{UserID: "m1", Role: domain.RoleMember, GymID: "g2"}))
	gym, _ := d.GymForUser(ctx, "m1", domain.RoleMember)
	assert.Equal(t, "g2", gym)

	require.NoError(t, d.ClearAffiliation(ctx, "m1", domain.RoleMember))
	assert.ErrorIs(t, d.ClearAffiliation(ctx, "m1", domain.RoleMember), domain.ErrNotFound)
	gym, _ = d.GymForUser(ctx, "m1", domain.RoleMember)
	assert.Empty(t, gym)
}

func TestWatchDirectoryFile_ReloadsOnWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("touches the real filesystem")
	}
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	d, err := LoadDirectory(afero.NewOsFs(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []domain.Affiliation, 4)
	require.NoError(t, WatchDirectoryFile(ctx, d, path, slog.New(slog.DiscardHandler), func(c []domain.Affiliation) {
		changes <- c
	}))

	// A broken write must not wipe the directory.
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, d.Len())

	moved := `{"affiliations":[{"userId":"m1","role":"member","gymId":"g9"}]}`
	require.NoError(t, os.WriteFile(path, []byte(moved), 0o644))

	require.Eventually(t, func() bool {
		gym, _ := d.GymForUser(ctx, "m1", domain.RoleMember)
		return gym == "g9"
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, d.Len())

	select {
	case changed := <-changes:
		assert.Equal(t, []string{"m1", "m2", "t1"}, lo.Map(changed, func(a domain.Affiliation, _ int) string { return a.UserID }))
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestDirectory_ReplaceReportsDroppedAndMoved(t *testing.T) {
	d := NewDirectory(
		domain.Affiliation{UserID: "t1", Role: domain.RoleTrainer, GymID: "g1"},
		domain.Affiliation{UserID: "m1", Role: domain.RoleMember, GymID: "g1"},
		domain.Affiliation{UserID: "m2", Role: domain.RoleMember, GymID: "g2"},
	)

	changed := d.Replace([]domain.Affiliation{
		{UserID: "t1", Role: domain.RoleTrainer, GymID: "g1", Name: "renamed"},
		{UserID: "m1", Role: domain.RoleMember, GymID: "g3"},
		{UserID: "m9", Role: domain.RoleMember, GymID: "g1"},
	})

	require.Len(t, changed, 2)
	assert.Equal(t, "m1", changed[0].UserID)
	assert.Equal(t, "g1", changed[0].GymID, "reports the previous gym")
	assert.Equal(t, "m2", changed[1].UserID)
}
