package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestStore opens a store with the schema applied in a fresh temp dir.
func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blog.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.EnsureSchema(context.Background()))

	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)}
	s.now = clock.Now
	return s, clock
}

func countPosts(t *testing.T, s *Store) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&n))
	return n
}
