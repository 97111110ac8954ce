package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

var fixedNow = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{
		Secret:   []byte("token-secret"),
		Issuer:   "odyssey-id",
		Audience: "odyssey-admin",
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return v
}

func TestVerifyRoundTrip(t *testing.T) {
	v := newVerifier(t)
	token, err := v.Sign(policy.Actor{
		UID:          "u-1",
		Email:        "root@example.com",
		Role:         "SuperAdmin",
		Capabilities: []string{"SUPERADMIN", "viewAudit"},
		Flags:        map[string]bool{"isSuperadmin": true, "super_admin": false},
	}, time.Hour)
	require.NoError(t, err)

	actor, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", actor.UID)
	assert.Equal(t, "root@example.com", actor.Email)
	assert.Equal(t, "SuperAdmin", actor.Role)
	assert.Equal(t, []string{"SUPERADMIN", "viewAudit"}, actor.Capabilities)
	assert.True(t, actor.Flags["isSuperadmin"])
	assert.False(t, actor.Flags["super_admin"])
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := newVerifier(t)
	token, err := v.Sign(policy.Actor{Email: "a@example.com"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	v := newVerifier(t)
	other, err := NewVerifier(Config{Secret: []byte("other"), Issuer: "odyssey-id", Audience: "odyssey-admin", Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	token, err := other.Sign(policy.Actor{Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	v := newVerifier(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"email": "a@example.com",
		"exp":   fixedNow.Add(time.Hour).Unix(),
		"iss":   "odyssey-id",
		"aud":   "odyssey-admin",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(token)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRequireIdentityStoresActor(t *testing.T) {
	v := newVerifier(t)
	mw := Middleware{Verifier: v}
	token, err := v.Sign(policy.Actor{Email: "a@example.com", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	var seen policy.Actor
	handler := mw.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/admins/role", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, "a@example.com", seen.Email)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/admin/admins/role", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Contains(t, res.Body.String(), `"code":"unauthenticated"`)
}

func TestRequireSharedSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	mw := Middleware{SecretHash: hash}
	handler := mw.RequireSharedSecret(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]int{
		"":       http.StatusUnauthorized,
		"wrong":  http.StatusUnauthorized,
		"s3cret": http.StatusNoContent,
	}
	for secret, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/admin/admins/remove", nil)
		if secret != "" {
			req.Header.Set(SecretHeader, secret)
		}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		assert.Equal(t, want, res.Code, "secret %q", secret)
	}
}
