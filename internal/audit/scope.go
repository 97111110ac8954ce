package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
)

// Scope is request-scoped memory of events already recorded during the
// request. A nil Scope records everything.
type Scope struct {
	mu       sync.Mutex
	recorded map[string]string
}

// NewScope returns an empty Scope for one request.
func NewScope() *Scope {
	return &Scope{recorded: make(map[string]string)}
}

type scopeKey struct{}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope carried by ctx, or nil.
func ScopeFrom(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeKey{}).(*Scope)
	return scope
}

// ScopeMiddleware gives every request its own Scope. A scope already on the
// request context is kept.
func ScopeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ScopeFrom(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), NewScope())))
	})
}

func (s *Scope) key(event Event) (string, error) {
	if s == nil {
		return "", nil
	}
	target, err := json.Marshal(event.Target)
	if err != nil {
		return "", err
	}
	return event.Action + "|" + string(target), nil
}

func (s *Scope) lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.recorded[key]
	return id, ok
}

func (s *Scope) remember(key, id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded[key] = id
}
