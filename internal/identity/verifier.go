// Package identity turns signed bearer tokens into policy actors and guards
// routes that need a verified identity or the shared admin secret.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Config defines how identity tokens are verified.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
	Now      func() time.Time
}

// Verifier validates HS256 identity tokens.
type Verifier struct {
	cfg Config
}

// NewVerifier constructs a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("identity: token secret is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks the signature and registered claims of raw and returns the
// actor it describes.
func (v *Verifier) Verify(raw string) (policy.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return policy.Actor{}, shared.Unauthenticated("identity token is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.cfg.Leeway),
		jwt.WithTimeFunc(v.cfg.Now),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	}, opts...); err != nil {
		return policy.Actor{}, mapJWTError(err)
	}
	actor := actorFromClaims(claims)
	if !actor.Authenticated() {
		return policy.Actor{}, shared.Unauthenticated("identity token carries no subject")
	}
	return actor, nil
}

// Sign issues a token for actor valid for ttl. It is used by the seed
// script and tests; production tokens come from the identity provider.
func (v *Verifier) Sign(actor policy.Actor, ttl time.Duration) (string, error) {
	now := v.cfg.Now()
	claims := jwt.MapClaims{
		"sub":   actor.UID,
		"email": actor.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if v.cfg.Issuer != "" {
		claims["iss"] = v.cfg.Issuer
	}
	if v.cfg.Audience != "" {
		claims["aud"] = v.cfg.Audience
	}
	if actor.Role != "" {
		claims["role"] = actor.Role
	}
	if len(actor.Capabilities) > 0 {
		claims["capabilities"] = actor.Capabilities
	}
	for name, set := range actor.Flags {
		claims[name] = set
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.cfg.Secret)
}

func actorFromClaims(claims jwt.MapClaims) policy.Actor {
	actor := policy.Actor{
		Email: stringClaim(claims, "email"),
		Role:  stringClaim(claims, "role"),
	}
	if sub, err := claims.GetSubject(); err == nil {
		actor.UID = strings.TrimSpace(sub)
	}
	switch caps := claims["capabilities"].(type) {
	case []any:
		for _, c := range caps {
			if s, ok := c.(string); ok && strings.TrimSpace(s) != "" {
				actor.Capabilities = append(actor.Capabilities, s)
			}
		}
	case string:
		for _, c := range strings.Split(caps, ",") {
			if c = strings.TrimSpace(c); c != "" {
				actor.Capabilities = append(actor.Capabilities, c)
			}
		}
	}
	for _, name := range policy.LegacyFlagClaims {
		if set, ok := claims[name].(bool); ok {
			if actor.Flags == nil {
				actor.Flags = make(map[string]bool)
			}
			actor.Flags[name] = set
		}
	}
	return actor
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return strings.TrimSpace(s)
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return shared.Unauthenticated("identity token is expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return shared.Unauthenticated("identity token signature is invalid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return shared.Unauthenticated("identity token issuer or audience mismatch")
	default:
		return shared.Unauthenticated("identity token is invalid")
	}
}
