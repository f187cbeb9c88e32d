package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// register adds one router owned by owner and returns the db path.
func register(t *testing.T, db, owner string, extra ...string) {
	t.Helper()
	args := append([]string{
		"register", "--db", db, "--as", owner,
		"--type", "Router", "--model", "EdgeRouter X", "--serial", "UBNT123",
		"--manufacturer", "Ubiquiti", "--ip", "192.168.1.1", "--coverage", "5000",
	}, extra...)
	mustRunCLI(t, args...)
}

func TestRegister_JSON(t *testing.T) {
	db := tempDB(t)

	out := mustRunCLI(t, "register", "--db", db, "--as", "alice", "--type", "Router", "--format", "json")
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)

	data := dataMap(t, resp)
	assert.Equal(t, "Equipment.register", data["action"])
	assert.Equal(t, "Success", data["output_case"])
	assert.Equal(t, float64(0), data["code"])
	assert.Equal(t, float64(1), data["height"])
	assert.Equal(t, float64(2), data["seq"])
	assert.Equal(t, map[string]any{"equipment_id": float64(1)}, data["result"])
}

func TestRegister_Text(t *testing.T) {
	out := mustRunCLI(t, "register", "--db", tempDB(t), "--as", "alice", "--type", "Router")
	assert.Contains(t, out, "✓ Equipment.register equipment_id=1 (seq 2, height 1)")
}

func TestRegister_WithoutCaller(t *testing.T) {
	out, err := runCLI(t, "register", "--db", tempDB(t), "--type", "Router", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNoCaller, resp.Error.Code)
}

func TestGet(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")

	out := mustRunCLI(t, "get", "1", "--db", db, "--format", "json")
	eq := dataMap(t, decodeResponse(t, out))
	assert.Equal(t, "alice", eq["owner"])
	assert.Equal(t, "active", eq["status"])
	assert.Equal(t, "UBNT123", eq["serial_number"])
	assert.Equal(t, float64(5000), eq["coverage_radius_meters"])
	assert.Equal(t, float64(1), eq["registration_date"])

	out = mustRunCLI(t, "get", "1", "--db", db)
	assert.Contains(t, out, "Equipment 1")
	assert.Contains(t, out, "Owner:        alice")
}

func TestGet_Errors(t *testing.T) {
	db := tempDB(t)

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantOut  string
	}{
		{"missing equipment", []string{"get", "9"}, ExitFailure, "Error [E404]"},
		{"zero id", []string{"get", "0"}, ExitFailure, "Error [E404]"},
		{"not a number", []string{"get", "router"}, ExitCommandError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, append(tt.args, "--db", db)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestStatus_OwnerOnly(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")

	out := mustRunCLI(t, "status", "1", "maintenance", "--db", db, "--as", "alice")
	assert.Contains(t, out, "✓ Equipment.setStatus equipment_id=1")

	out, err := runCLI(t, "status", "1", "decommissioned", "--db", db, "--as", "bob", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnauthorized, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Unauthorized", details["output_case"])
	assert.Equal(t, float64(403), details["code"])

	// The rejection changed nothing.
	eq := dataMap(t, decodeResponse(t, mustRunCLI(t, "get", "1", "--db", db, "--format", "json")))
	assert.Equal(t, "maintenance", eq["status"])
}

func TestStatus_NotFound(t *testing.T) {
	out, err := runCLI(t, "status", "7", "active", "--db", tempDB(t), "--as", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Equipment.setStatus NotFound")
}

func TestLocateAndNetwork(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")

	mustRunCLI(t, "locate", "1", "--db", db, "--as", "alice",
		"--lat", "40.7128", "--lon", "-74.0060", "--location", "Water tower")
	mustRunCLI(t, "network", "1", "--db", db, "--as", "alice",
		"--ip", "10.0.0.2", "--firmware", "v2.1.0")

	eq := dataMap(t, decodeResponse(t, mustRunCLI(t, "get", "1", "--db", db, "--format", "json")))
	assert.Equal(t, "Water tower", eq["location_description"])
	assert.Equal(t, "40.7128", eq["location_latitude"])
	assert.Equal(t, "10.0.0.2", eq["ip_address"])
	assert.Equal(t, "v2.1.0", eq["firmware_version"])
	// Attributes outside the update are untouched.
	assert.Equal(t, "UBNT123", eq["serial_number"])
}

func TestTransferAndHistory(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")

	mustRunCLI(t, "transfer", "1", "bob", "--db", db, "--as", "alice", "--reason", "district handover")

	// alice lost control, bob gained it.
	_, err := runCLI(t, "status", "1", "retired", "--db", db, "--as", "alice")
	require.Error(t, err)
	mustRunCLI(t, "status", "1", "retired", "--db", db, "--as", "bob")

	out := mustRunCLI(t, "history", "1", "--db", db, "--format", "json")
	records, ok := decodeResponse(t, out).Data.([]any)
	require.True(t, ok)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Equal(t, "alice", rec["previous_owner"])
	assert.Equal(t, "bob", rec["new_owner"])
	assert.Equal(t, "district handover", rec["transfer_reason"])
	assert.Equal(t, float64(2), rec["transfer_date"])

	out = mustRunCLI(t, "history", "1", "--seq", "1", "--db", db)
	assert.Contains(t, out, "1-1\talice -> bob")

	_, err = runCLI(t, "history", "1", "--seq", "2", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestHistory_Empty(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")

	out := mustRunCLI(t, "history", "1", "--db", db)
	assert.Contains(t, out, "No transfers for equipment 1.")
}

func TestList_Filters(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")
	register(t, db, "bob")
	mustRunCLI(t, "status", "2", "maintenance", "--db", db, "--as", "bob")

	tests := []struct {
		name    string
		filter  []string
		wantIDs []float64
	}{
		{"all", nil, []float64{1, 2}},
		{"by owner", []string{"--owner", "bob"}, []float64{2}},
		{"by status", []string{"--status", "active"}, []float64{1}},
		{"no match", []string{"--owner", "carol"}, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"list", "--db", db, "--format", "json"}, tt.filter...)
			items, ok := decodeResponse(t, mustRunCLI(t, args...)).Data.([]any)
			require.True(t, ok)

			ids := []float64{}
			for _, item := range items {
				ids = append(ids, item.(map[string]any)["id"].(float64))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestHeight(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")
	register(t, db, "alice", "--height", "50")
	register(t, db, "alice")

	for id, want := range map[string]float64{"1": 1, "2": 50, "3": 51} {
		eq := dataMap(t, decodeResponse(t, mustRunCLI(t, "get", id, "--db", db, "--format", "json")))
		assert.Equal(t, want, eq["registration_date"], "equipment %s", id)
	}
}

func TestInvoke(t *testing.T) {
	db := tempDB(t)
	register(t, db, "alice")

	out := mustRunCLI(t, "invoke", "Equipment.setStatus", "--db", db, "--as", "alice",
		"--args", `{"equipment_id":1,"status":"maintenance"}`)
	assert.Contains(t, out, "✓ Equipment.setStatus")

	tests := []struct {
		name string
		args []string
	}{
		{"invalid json", []string{"invoke", "Equipment.setStatus", "--args", "{not json"}},
		{"unknown action", []string{"invoke", "Equipment.paint", "--args", "{}"}},
		{"missing status", []string{"invoke", "Equipment.setStatus", "--args", `{"equipment_id":1}`}},
		{"wrong type", []string{"invoke", "Equipment.setStatus", "--args", `{"equipment_id":"one","status":"x"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append(tt.args, "--db", db, "--as", "alice")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}

	// None of the bad requests reached the journal.
	out = mustRunCLI(t, "trace", "--db", db)
	assert.Contains(t, out, "2 invocation(s), 2 completion(s), 0 rejected, 0 pending")
}
