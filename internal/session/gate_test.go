package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/duka-storefront/internal/api"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func storeWithSession(t *testing.T, token string) Store {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, token))
	user, err := json.Marshal(api.User{ID: 7, Email: "wanjiku@example.com", FullName: "Wanjiku Kamau"})
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyUser, string(user)))
	return store
}

// ============================================
// Session restore
// ============================================

func TestGate_RestoresPersistedSession(t *testing.T) {
	store := storeWithSession(t, signedToken(t, time.Now().Add(time.Hour)))

	gate := NewGate(store)

	assert.True(t, gate.IsAuthenticated())
	require.NotNil(t, gate.CurrentUser())
	assert.Equal(t, "wanjiku@example.com", gate.CurrentUser().Email)
	assert.NotEmpty(t, gate.Token())
}

func TestGate_DropsExpiredStoredToken(t *testing.T) {
	store := storeWithSession(t, signedToken(t, time.Now().Add(-time.Hour)))

	gate := NewGate(store)

	assert.False(t, gate.IsAuthenticated())
	assert.Nil(t, gate.CurrentUser())
	assert.Empty(t, gate.Token())

	stored, err := store.Get(KeyAccessToken)
	require.NoError(t, err)
	assert.Empty(t, stored, "expired session is cleared from the store")
}

func TestGate_DropsGarbageToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, "not-a-jwt"))

	gate := NewGate(store)

	assert.False(t, gate.IsAuthenticated())
}

func TestGate_EmptyStoreIsUnauthenticated(t *testing.T) {
	gate := NewGate(NewMemoryStore())

	assert.False(t, gate.IsAuthenticated())
	assert.Nil(t, gate.CurrentUser())
}

// ============================================
// Expiry mid-session
// ============================================

func TestGate_ExpiryMidSessionNotifiesSubscribers(t *testing.T) {
	store := storeWithSession(t, signedToken(t, time.Now().Add(50*time.Millisecond)))
	gate := NewGate(store)

	var events []bool
	gate.Subscribe(func(authenticated bool) { events = append(events, authenticated) })

	require.True(t, gate.IsAuthenticated())
	time.Sleep(80 * time.Millisecond)

	assert.False(t, gate.IsAuthenticated())
	assert.Equal(t, []bool{false}, events)
	assert.Nil(t, gate.CurrentUser())
}

// ============================================
// Logout
// ============================================

func TestGate_LogoutClearsStoreAndNotifies(t *testing.T) {
	store := storeWithSession(t, signedToken(t, time.Now().Add(time.Hour)))
	gate := NewGate(store)

	var events []bool
	gate.Subscribe(func(authenticated bool) { events = append(events, authenticated) })

	gate.Logout()

	assert.False(t, gate.IsAuthenticated())
	assert.Equal(t, []bool{false}, events)

	stored, err := store.Get(KeyAccessToken)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGate_LogoutWhileLoggedOutIsQuiet(t *testing.T) {
	gate := NewGate(NewMemoryStore())

	var events []bool
	gate.Subscribe(func(authenticated bool) { events = append(events, authenticated) })

	gate.Logout()

	assert.Empty(t, events, "no state change, no notification")
}
