// Package session keeps each browser's filter selections apart. Sessions are
// identified by a random cookie and live only in memory.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/cache"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/filter"
)

// State is what a session remembers between requests. Derived tables are
// recomputed on every request and never stored here.
type State struct {
	Params    filter.Params `json:"params"`
	TopK      int           `json:"top_k"`
	Raw       filter.Params `json:"raw"`
	FileName  string        `json:"file_name,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Store struct {
	states     *cache.LRUCache[State]
	cookieName string
	secure     bool
	ttl        time.Duration
}

func NewStore(cfg config.SessionConfig) *Store {
	return &Store{
		states:     cache.NewLRUCache[State](cfg.MaxSessions, cfg.TTL),
		cookieName: cfg.CookieName,
		secure:     cfg.SecureCookie,
		ttl:        cfg.TTL,
	}
}

// ID returns the session id of r, issuing a new cookie when the request has
// none or carries a malformed one.
func (s *Store) ID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Store) Get(id string) (State, bool) {
	return s.states.Get(id)
}

// Put replaces the state of session id.
func (s *Store) Put(id string, state State) {
	state.UpdatedAt = time.Now().UTC()
	s.states.Set(id, state)
}

func (s *Store) Delete(id string) {
	s.states.Delete(id)
}

func (s *Store) Size() int {
	return s.states.Size()
}

// CleanExpired drops sessions idle for longer than the TTL.
func (s *Store) CleanExpired() int {
	return s.states.CleanExpired()
}
