package ports_test

import (
	"context"
	"testing"

	"github.com/target/forest-console/internal/adapters/filestore"
	"github.com/target/forest-console/internal/adapters/identityapi"
	"github.com/target/forest-console/internal/adapters/memory"
	"github.com/target/forest-console/internal/adapters/redis"
	"github.com/target/forest-console/internal/mocks"
	authmocks "github.com/target/forest-console/internal/mocks/auth"
	"github.com/target/forest-console/internal/ports"
)

// This test only verifies that adapters and mocks conform to the ports at compile time.
func TestImplementationsSatisfyPorts(t *testing.T) {
	t.Helper()

	var _ ports.SlotStorage = (*memory.SlotStore)(nil)
	var _ ports.SlotStorage = (*filestore.SlotStore)(nil)
	var _ ports.SlotStorage = (*redis.SlotStore)(nil)
	var _ ports.SlotStorage = (*authmocks.FaultySlotStorage)(nil)
	var _ ports.IdentityAPI = (*identityapi.Client)(nil)
	var _ ports.IdentityAPI = (*mocks.MockIdentityAPI)(nil)
	var _ ports.SessionExpiredHandler = (*mocks.MockSessionExpiredHandler)(nil)
	var _ ports.SessionExpiredHandler = (*authmocks.RecordingExpiredHandler)(nil)
}

func TestSessionExpiredFunc(t *testing.T) {
	var got string
	var h ports.SessionExpiredHandler = ports.SessionExpiredFunc(func(_ context.Context, path string) {
		got = path
	})

	h.SessionExpired(context.Background(), "/api/trees")
	if got != "/api/trees" {
		t.Fatalf("expected path to be forwarded, got %q", got)
	}
}
