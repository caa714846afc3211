package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/liftfop/internal/athlete"
)

// createTestStore opens a fresh database in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ctx(t *testing.T) context.Context {
	return t.Context()
}

// seedGroup creates a platform and one group on it.
func seedGroup(t *testing.T, s *Store, platform, groupID string) {
	t.Helper()
	require.NoError(t, s.UpsertPlatform(ctx(t), platform))
	require.NoError(t, s.UpsertGroup(ctx(t), Group{ID: groupID, Platform: platform, Name: "Group " + groupID}))
}

// testAthlete creates an athlete with minimal required fields.
func testAthlete(id, groupID string, start int) *athlete.Athlete {
	return &athlete.Athlete{
		ID:             id,
		LastName:       "Lifter " + id,
		Category:       "M89",
		GroupID:        groupID,
		StartNumber:    start,
		Requested:      100,
		CleanJerkStart: 120,
	}
}
