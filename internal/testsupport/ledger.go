package testsupport

import (
	"testing"

	"imgsim/internal/config"
	"imgsim/internal/ledger"
)

// MustOpenLedger opens a run ledger for the provided config and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
