package user_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"relaychat/internal/app/live"
	"relaychat/internal/app/memdb"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
)

// recordingPublisher remembers published topics.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topics ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topics...)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func seed(t *testing.T, store *memdb.Store, users ...user.User) {
	t.Helper()
	for _, u := range users {
		_, err := store.CreateUserIfAbsent(context.Background(), u)
		require.NoError(t, err)
	}
}

func TestDirectory_FetchExcludesSelfAndSorts(t *testing.T) {
	store := memdb.New()
	seed(t, store,
		user.User{ID: "u1", DisplayName: "carol"},
		user.User{ID: "u2", DisplayName: "Alice"},
		user.User{ID: "u3", DisplayName: "bob"},
	)

	users, err := user.NewDirectory(store).Fetch(context.Background(), "u3")
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "carol"}, []string{users[0].DisplayName, users[1].DisplayName})
}

func TestDirectory_Get(t *testing.T) {
	store := memdb.New()
	seed(t, store, user.User{ID: "u1", DisplayName: "Alice"})
	dir := user.NewDirectory(store)

	u, err := dir.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.DisplayName)

	_, err = dir.Get(context.Background(), "missing")
	require.Equal(t, errs.ErrUserNotFound, errs.CodeOf(err))
}

func TestFilter(t *testing.T) {
	users := []user.User{
		{ID: "1", DisplayName: "Alice Liddell"},
		{ID: "2", DisplayName: "Bob"},
		{ID: "3", DisplayName: "MALICE"},
	}

	require.Equal(t, users, user.Filter(users, ""))
	require.Equal(t, users, user.Filter(users, "   "))

	got := user.Filter(users, "alic")
	require.Len(t, got, 2)
	require.Equal(t, "1", got[0].ID)
	require.Equal(t, "3", got[1].ID)

	require.Empty(t, user.Filter(users, "zed"))
}

func TestRegistrar_EnsureRegisteredIsIdempotent(t *testing.T) {
	store := memdb.New()
	pub := &recordingPublisher{}
	registrar := user.NewRegistrar(store, pub)
	u := user.User{ID: "u1", DisplayName: "Alice", Email: "alice@example.com"}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := registrar.EnsureRegistered(context.Background(), u)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, created)
	require.Equal(t, []string{live.TopicUsers}, pub.published())

	all, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestRegistrar_DoesNotOverwriteExistingProfile(t *testing.T) {
	store := memdb.New()
	seed(t, store, user.User{ID: "u1", DisplayName: "Renamed"})

	created, err := user.NewRegistrar(store, &recordingPublisher{}).EnsureRegistered(context.Background(), user.User{ID: "u1", DisplayName: "Original"})
	require.NoError(t, err)
	require.False(t, created)

	u, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", u.DisplayName)
}

func TestRegistrar_UpdateProfile(t *testing.T) {
	store := memdb.New()
	seed(t, store, user.User{ID: "u1", DisplayName: "Alice"})
	pub := &recordingPublisher{}
	registrar := user.NewRegistrar(store, pub)

	u, err := registrar.UpdateProfile(context.Background(), "u1", user.Profile{DisplayName: "Al", PhotoURL: "https://cdn.example.com/a.png"})
	require.NoError(t, err)
	require.Equal(t, "Al", u.DisplayName)
	require.Equal(t, []string{live.TopicUsers}, pub.published())

	_, err = registrar.UpdateProfile(context.Background(), "missing", user.Profile{DisplayName: "X"})
	require.Equal(t, errs.ErrUserNotFound, errs.CodeOf(err))
}
