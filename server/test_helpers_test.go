package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/intcode/history"
)

// ---------------------------------------------------------------------------
// Programs shared by the server tests.
// ---------------------------------------------------------------------------

var (
	// echoProgram reads one value and writes it back.
	echoProgram = []int64{3, 0, 4, 0, 99}

	// addProgram doubles memory[0] into memory[0].
	addProgram = []int64{1, 0, 0, 0, 99}

	// sumProgram reads two values and outputs their sum.
	sumProgram = []int64{3, 11, 3, 12, 1, 11, 12, 13, 4, 13, 99, 0, 0, 0}

	// loopProgram jumps to itself forever.
	loopProgram = []int64{1105, 1, 0}
)

// ---------------------------------------------------------------------------
// Service helpers
// ---------------------------------------------------------------------------

// testEnv bundles a service with its stores.
type testEnv struct {
	Service  *MachineService
	Sessions *SessionStore
	History  *history.Store
}

// newTestEnv creates a service with an in-memory history database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	sessions := NewSessionStore(4)
	t.Cleanup(func() {
		sessions.CloseAll()
		store.Close()
	})
	return &testEnv{
		Service:  NewMachineService(NewRunner(2, 1000, store), sessions),
		Sessions: sessions,
		History:  store,
	}
}

// ---------------------------------------------------------------------------
// Request builder helpers
// ---------------------------------------------------------------------------

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
