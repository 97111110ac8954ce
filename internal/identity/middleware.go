package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// SecretHeader carries the shared admin secret.
const SecretHeader = "X-Admin-Secret"

type actorContextKey struct{}

// ContextWithActor stores the verified actor in context.
func ContextWithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the verified actor. The zero Actor is returned
// when none was stored, and it is not Authenticated.
func ActorFromContext(ctx context.Context) policy.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(policy.Actor)
	return actor
}

// Middleware wires identity checks for HTTP handlers.
type Middleware struct {
	Verifier *Verifier
	// SecretHash is the bcrypt hash of the shared admin secret.
	SecretHash []byte
	Logger     *slog.Logger
}

// RequireIdentity rejects requests without a valid bearer token and stores
// the verified actor in the request context.
func (m Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, shared.Unauthenticated("bearer token required"))
			return
		}
		actor, err := m.Verifier.Verify(raw)
		if err != nil {
			m.logger().Warn("identity verification failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireSharedSecret rejects requests whose X-Admin-Secret header does not
// match SecretHash. It is independent of RequireIdentity; routes that use
// both need both to pass.
func (m Middleware) RequireSharedSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get(SecretHeader)
		if secret == "" || len(m.SecretHash) == 0 {
			httpx.RespondError(w, shared.Unauthenticated("shared secret required"))
			return
		}
		if err := bcrypt.CompareHashAndPassword(m.SecretHash, []byte(secret)); err != nil {
			m.logger().Warn("shared secret mismatch", slog.String("path", r.URL.Path))
			httpx.RespondError(w, shared.Unauthenticated("shared secret invalid"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
