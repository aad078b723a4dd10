package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "pulse", "token.json"))
	s, err := New(store, nil)
	require.NoError(t, err)
	return s, store
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestStoreSaveLoadClear(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "token.json"))

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save("abc"))
	tok, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"abc"}`, string(raw))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)

	_, err = New(NewStore(path), nil)
	assert.Error(t, err)
}

func TestSessionIDIsFreshPerProcess(t *testing.T) {
	a, store := newTestSession(t)
	b, err := New(store, nil)
	require.NoError(t, err)

	_, err = uuid.Parse(a.ID())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestLoginLogout(t *testing.T) {
	s, store := newTestSession(t)
	assert.False(t, s.LoggedIn())

	require.NoError(t, s.Login("tok-1"))
	assert.True(t, s.LoggedIn())
	assert.Equal(t, "tok-1", s.Token())

	// A second session on the same store picks the token up.
	other, err := New(store, nil)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", other.Token())

	require.NoError(t, s.Logout())
	assert.False(t, s.LoggedIn())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	assert.ErrorIs(t, s.Login(""), ErrNoToken)
}

func TestClaims(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Claims()
	assert.ErrorIs(t, err, ErrNoToken)

	exp := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Login(signedToken(t, "admin", exp)))

	c, err := s.Claims()
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Subject)
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.False(t, c.Expired(exp.Add(-time.Minute)))
	assert.True(t, c.Expired(exp.Add(time.Minute)))

	require.NoError(t, s.Login("not-a-jwt"))
	_, err = s.Claims()
	assert.Error(t, err)
}

func TestWatcherFollowsExternalChanges(t *testing.T) {
	s, store := newTestSession(t)
	require.NoError(t, s.Login("first"))

	w, err := NewWatcher(s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Another process logs out.
	require.NoError(t, os.Remove(store.Path()))
	require.Eventually(t, func() bool { return !s.LoggedIn() }, 3*time.Second, 10*time.Millisecond)

	// And logs back in with a new token.
	require.NoError(t, NewStore(store.Path()).Save("second"))
	require.Eventually(t, func() bool { return s.Token() == "second" }, 3*time.Second, 10*time.Millisecond)
}
