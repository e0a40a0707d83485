package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/etfolio/backend/src/models"
)

const sessionCookieName = "session_id"

const sessionContextKey contextKey = "session"

// SessionState is the per-browser UI state: the portfolio under edit and the
// last projection inputs, so the calculator view can restore itself. There is
// no authentication; a session is just an anonymous expiring scratchpad.
type SessionState struct {
	mu         sync.Mutex
	Portfolio  models.Portfolio
	Projection *models.ProjectionInput
}

// WithPortfolio runs fn with exclusive access to the session's portfolio.
func (s *SessionState) WithPortfolio(fn func(p models.Portfolio)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.Portfolio)
}

// PortfolioSnapshot returns a copy safe to aggregate without holding the lock.
func (s *SessionState) PortfolioSnapshot() models.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(models.Portfolio, len(s.Portfolio))
	for code, qty := range s.Portfolio {
		out[code] = qty
	}
	return out
}

// SetProjection stores the last projection input.
func (s *SessionState) SetProjection(in models.ProjectionInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Projection = &in
}

// ProjectionSnapshot returns the stored projection input, if any.
func (s *SessionState) ProjectionSnapshot() (models.ProjectionInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Projection == nil {
		return models.ProjectionInput{}, false
	}
	return *s.Projection, true
}

// SessionStore keeps SessionStates in an expiring cache keyed by cookie ID.
type SessionStore struct {
	sessions *cache.Cache
	ttl      time.Duration
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: cache.New(ttl, 2*ttl),
		ttl:      ttl,
	}
}

// get returns the state for an ID, creating it when absent, and slides the
// expiry. Creation goes through Add so two concurrent first requests for the
// same ID resolve to a single state.
func (st *SessionStore) get(id string) *SessionState {
	for {
		if cached, found := st.sessions.Get(id); found {
			state := cached.(*SessionState)
			st.sessions.Set(id, state, st.ttl)
			return state
		}
		state := &SessionState{Portfolio: models.Portfolio{}}
		if st.sessions.Add(id, state, st.ttl) == nil {
			return state
		}
	}
}

// Middleware ensures every request carries a session cookie and puts the
// matching SessionState on the request context.
func (st *SessionStore) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			id = cookie.Value
		} else {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(st.ttl.Seconds()),
			})
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, st.get(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext retrieves the SessionState placed by Middleware.
func SessionFromContext(ctx context.Context) (*SessionState, bool) {
	state, ok := ctx.Value(sessionContextKey).(*SessionState)
	return state, ok
}
