package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"newsboard/internal/models"
	"newsboard/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	ctx   context.Context
	board *Board
	store *countingStore
	clock *clockwork.FakeClock
	admin *models.Viewer
	ips   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	st := &countingStore{Store: store.NewMemoryStore(clock)}
	board, err := NewBoard(st, clock, DefaultSettings(), zap.NewNop(), nil)
	require.NoError(t, err)

	f := &fixture{ctx: context.Background(), board: board, store: st, clock: clock}
	// the first account becomes admin; keep it out of the way of ordinary users
	f.admin = f.user(t, "root", 1000)
	return f
}

// user creates an account with the given karma and returns its viewer.
func (f *fixture) user(t *testing.T, name string, karma int64) *models.Viewer {
	t.Helper()
	f.ips++
	ip := fmt.Sprintf("10.0.0.%d", f.ips)
	u, err := f.board.Accounts.Create(f.ctx, name, "password123", ip)
	require.NoError(t, err)
	require.NoError(t, f.store.HSet(f.ctx, keyUser(u.ID), map[string]string{"karma": strconv.FormatInt(karma, 10)}))
	u.Karma = karma
	return &models.Viewer{User: u, IP: ip}
}

// reload re-reads the viewer's user record as a new request would.
func (f *fixture) reload(t *testing.T, v *models.Viewer) *models.Viewer {
	t.Helper()
	u, err := f.board.Accounts.ByID(f.ctx, v.User.ID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return &models.Viewer{User: u, IP: v.IP}
}

func (f *fixture) karma(t *testing.T, userID int64) int64 {
	t.Helper()
	k, err := f.board.Karma.Karma(f.ctx, nil, userID)
	require.NoError(t, err)
	return k
}

func (f *fixture) post(t *testing.T, id int64) *models.Post {
	t.Helper()
	p, err := loadPost(f.ctx, f.board.Posts.core, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

// submit creates a link post and clears the author's submission cooldown.
func (f *fixture) submit(t *testing.T, v *models.Viewer, title, link string) int64 {
	t.Helper()
	id, err := f.board.Posts.Create(f.ctx, v, title, link, "")
	require.NoError(t, err)
	require.NoError(t, f.store.Del(f.ctx, keySubmittedRecently(v.User.ID)))
	return id
}

// countingStore counts writes so tests can assert that a path stays read-only.
// failNext injects a one-shot failure for a write on a given key.
type countingStore struct {
	store.Store
	mu       sync.Mutex
	writes   int
	failures map[string]error
}

func (s *countingStore) failNext(op, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = make(map[string]error)
	}
	s.failures[op+" "+key] = err
}

func (s *countingStore) write(op, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	k := op + " " + key
	if err, ok := s.failures[k]; ok {
		delete(s.failures, k)
		return err
	}
	return nil
}

func (s *countingStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *countingStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := s.write("hset", key); err != nil {
		return err
	}
	return s.Store.HSet(ctx, key, fields)
}

func (s *countingStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	if err := s.write("zadd", key); err != nil {
		return err
	}
	return s.Store.ZAdd(ctx, key, member, score)
}
