package app

import (
	"os"
	"sync"
)

// TestModeEnv disables process side effects such as server start-up and
// request logging when set to "1".
const TestModeEnv = "ODYSSEY_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether the binary runs under tests. The variable is
// read once per process.
func InTestMode() bool {
	return testMode()
}
