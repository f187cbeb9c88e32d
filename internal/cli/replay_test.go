package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldreg/internal/engine"
	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/store"
)

func TestReplayEmptyDatabase(t *testing.T) {
	out := mustRunCLI(t, "replay", "--db", tempDB(t))
	assert.Contains(t, out, "No invocations found in database.")
}

func TestReplayDeterministic(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")
	mustRunCLI(t, "transfer", "1", "bob", "--db", db, "--as", "alice")
	_, err := runCLI(t, "status", "1", "lost", "--db", db, "--as", "alice")
	require.Error(t, err)

	out := mustRunCLI(t, "replay", "--db", db)
	assert.Contains(t, out, "Replayed 3 invocation(s): 3 verified, 0 pending")
	assert.Contains(t, out, "✓ Journal replay is deterministic")
}

func TestReplayDeterministicJSON(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")

	out := mustRunCLI(t, "replay", "--db", db, "--format", "json")
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	data := dataMap(t, resp)
	assert.Equal(t, true, data["deterministic"])
	assert.Equal(t, float64(1), data["invocations"])
	assert.Equal(t, []any{}, data["mismatches"])
}

// seedTamperedJournal writes a registration whose recorded ids were not
// produced by the engine.
func seedTamperedJournal(t *testing.T, db string) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	inv := ir.Invocation{
		ID:            "forged-invocation",
		Token:         "manual",
		Action:        ir.ActionRegister,
		Args:          attributesArgs(ir.EquipmentAttributes{EquipmentType: "Router", SerialNumber: "S1"}),
		Seq:           1,
		Caller:        "alice",
		Height:        1,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	require.NoError(t, st.WriteInvocation(ctx, inv))
	require.NoError(t, st.WriteCompletion(ctx, ir.Completion{
		ID:           "forged-completion",
		InvocationID: inv.ID,
		OutputCase:   ir.CaseSuccess,
		Result:       ir.Args{"equipment_id": int64(1)},
		Seq:          2,
	}))
}

func TestReplayDetectsTampering(t *testing.T) {
	db := tempDB(t)
	seedTamperedJournal(t, db)

	out, err := runCLI(t, "replay", "--db", db, "-v")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "invocation_id differs")
	assert.Contains(t, out, "recorded: forged-invocation")
	assert.Contains(t, out, "did not replay")
}

func TestReplayDetectsTamperingJSON(t *testing.T) {
	db := tempDB(t)
	seedTamperedJournal(t, db)

	out, err := runCLI(t, "replay", "--db", db, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)

	mismatches, ok := dataMap(t, resp)["mismatches"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, mismatches)
	assert.Equal(t, engine.MismatchInvocationID, mismatches[0].(map[string]any)["kind"])
}

func TestReplayDoesNotWrite(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	// An invocation whose completion was never written.
	st, err := store.Open(db)
	require.NoError(t, err)
	args := attributesArgs(ir.EquipmentAttributes{EquipmentType: "Router"})
	inv := ir.Invocation{
		Token: "manual", Action: ir.ActionRegister, Args: args, Seq: 1, Caller: "alice", Height: 1,
		EngineVersion: ir.EngineVersion, IRVersion: ir.IRVersion,
	}
	inv.ID = ir.MustInvocationID(inv.Token, inv.Action, inv.Args, inv.Caller, inv.Height, inv.Seq)
	require.NoError(t, st.WriteInvocation(ctx, inv))
	require.NoError(t, st.Close())

	out := mustRunCLI(t, "replay", "--db", db)
	assert.Contains(t, out, "0 verified, 1 pending")

	st, err = store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	pending, err := st.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}
