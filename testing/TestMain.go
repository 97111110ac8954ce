package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"golang.org/x/crypto/bcrypt"
)

var once sync.Once

// testDefaults satisfies the required configuration so packages that load
// config can run without a prepared environment.
var testDefaults = map[string]string{
	"TOKEN_SECRET": "test-secret",
}

// TestSharedSecret is the plain admin secret whose hash is exported as
// ADMIN_SHARED_SECRET_HASH in test mode.
const TestSharedSecret = "let-me-in"

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		for key, value := range testDefaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
		if os.Getenv("ADMIN_SHARED_SECRET_HASH") == "" {
			if hash, err := bcrypt.GenerateFromPassword([]byte(TestSharedSecret), bcrypt.MinCost); err == nil {
				_ = os.Setenv("ADMIN_SHARED_SECRET_HASH", string(hash))
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
