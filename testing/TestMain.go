package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("PMWS_TEST_MODE", "1")
		if os.Getenv("NOTIFY_MODE") == "" {
			_ = os.Setenv("NOTIFY_MODE", "log")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain enables test mode for packages that delegate to it.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
