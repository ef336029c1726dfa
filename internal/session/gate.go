package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"github.com/example/duka-storefront/internal/api"
)

// Listener is notified whenever the gate's authentication state flips.
type Listener func(authenticated bool)

// Gate owns the session identity: whether a caller is authenticated and
// who they are. Cart and checkout operations are gated on it. State
// changes (login, logout, expiry detection) fan out to subscribers so
// dependent components can re-evaluate their own guards.
type Gate struct {
	mu        sync.Mutex
	store     Store
	token     string
	user      *api.User
	listeners []Listener
}

// NewGate builds a gate over the given credential store, restoring any
// persisted session. A stored token that is already expired is treated
// as unauthenticated and dropped.
func NewGate(store Store) *Gate {
	g := &Gate{store: store}

	token, err := store.Get(KeyAccessToken)
	if err != nil {
		log.WithError(err).Warn("Failed to read stored access token")
		return g
	}
	if token == "" {
		return g
	}
	if tokenExpired(token) {
		log.Info("Stored access token has expired, clearing session")
		if err := store.Clear(); err != nil {
			log.WithError(err).Warn("Failed to clear expired session")
		}
		return g
	}

	g.token = token
	if raw, err := store.Get(KeyUser); err == nil && raw != "" {
		var user api.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			log.WithError(err).Warn("Failed to decode stored user")
		} else {
			g.user = &user
		}
	}
	return g
}

// Subscribe registers a listener for authentication state changes.
func (g *Gate) Subscribe(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, l)
}

// IsAuthenticated reports whether a live session exists. A token that
// expired since the last check flips the gate to unauthenticated.
func (g *Gate) IsAuthenticated() bool {
	g.mu.Lock()
	if g.token == "" {
		g.mu.Unlock()
		return false
	}
	if !tokenExpired(g.token) {
		g.mu.Unlock()
		return true
	}
	g.token = ""
	g.user = nil
	listeners := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	log.Info("Access token expired mid-session")
	if err := g.store.Clear(); err != nil {
		log.WithError(err).Warn("Failed to clear expired session")
	}
	for _, l := range listeners {
		l(false)
	}
	return false
}

// CurrentUser returns the authenticated user, or nil.
func (g *Gate) CurrentUser() *api.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user
}

// Token returns the current bearer token. Implements api.TokenSource.
func (g *Gate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Login authenticates against the backend and persists the session.
func (g *Gate) Login(ctx context.Context, client *api.Client, creds api.Credentials) error {
	resp, err := client.Login(ctx, creds)
	if err != nil {
		return err
	}
	g.adopt(resp)
	return nil
}

// Register creates an account and adopts the returned session.
func (g *Gate) Register(ctx context.Context, client *api.Client, req api.RegisterRequest) error {
	resp, err := client.Register(ctx, req)
	if err != nil {
		return err
	}
	g.adopt(resp)
	return nil
}

// Logout tears the session down and clears the credential store.
func (g *Gate) Logout() {
	g.mu.Lock()
	wasAuthed := g.token != ""
	g.token = ""
	g.user = nil
	listeners := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	if err := g.store.Clear(); err != nil {
		log.WithError(err).Warn("Failed to clear credential store on logout")
	}
	if wasAuthed {
		for _, l := range listeners {
			l(false)
		}
	}
}

func (g *Gate) adopt(resp *api.AuthResponse) {
	g.mu.Lock()
	g.token = resp.AccessToken
	g.user = resp.User
	listeners := append([]Listener(nil), g.listeners...)
	g.mu.Unlock()

	if err := g.store.Set(KeyAccessToken, resp.AccessToken); err != nil {
		log.WithError(err).Warn("Failed to persist access token")
	}
	if raw, err := json.Marshal(resp.User); err == nil {
		if err := g.store.Set(KeyUser, string(raw)); err != nil {
			log.WithError(err).Warn("Failed to persist user")
		}
	}
	for _, l := range listeners {
		l(true)
	}
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; validation is the server's job. A token that cannot be
// parsed at all counts as expired.
func tokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().After(claims.ExpiresAt.Time)
}
