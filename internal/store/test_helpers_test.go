package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/fieldreg/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestInvocation creates a test invocation with minimal required fields.
func createTestInvocation(id, token string, seq int64) ir.Invocation {
	return ir.Invocation{
		ID:            id,
		Token:         token,
		Action:        ir.ActionRegister,
		Args:          ir.Args{},
		Seq:           seq,
		Caller:        "ST1",
		Height:        100,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// createTestCompletion creates a test completion with minimal required fields.
func createTestCompletion(id, invocationID, outputCase string, seq int64) ir.Completion {
	return ir.Completion{
		ID:           id,
		InvocationID: invocationID,
		OutputCase:   outputCase,
		Result:       ir.Args{},
		Seq:          seq,
	}
}
