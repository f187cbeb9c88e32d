package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/registry"
	"github.com/roach88/fieldreg/internal/store"
	"github.com/roach88/fieldreg/internal/tracing"
)

const (
	ownerP ir.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	otherQ ir.Principal = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestEngine returns an engine whose caller and height come from the
// context, with fixed correlation tokens.
func newTestEngine(t *testing.T, s *store.Store, tokens ...string) *Engine {
	t.Helper()
	if len(tokens) == 0 {
		tokens = []string{"tok-1", "tok-2", "tok-3", "tok-4", "tok-5", "tok-6", "tok-7", "tok-8"}
	}
	return New(s, identity.ContextResolver{}, WithTokens(NewFixedGenerator(tokens...)))
}

func as(p ir.Principal, height int64) context.Context {
	return identity.With(context.Background(), identity.Identity{Caller: p, Height: height})
}

func registerArgs() ir.Args {
	return ir.Args{
		"equipment_type":         "Router",
		"model":                  "Ubiquiti EdgeRouter X",
		"serial_number":          "UBNT12345678",
		"manufacturer":           "Ubiquiti",
		"purchase_date":          90,
		"installation_date":      95,
		"location_latitude":      "37.7749",
		"location_longitude":     "-122.4194",
		"location_description":   "Community Center Rooftop",
		"ip_address":             "192.168.1.1",
		"mac_address":            "00:11:22:33:44:55",
		"firmware_version":       "v2.0.9",
		"power_source":           "Solar",
		"coverage_radius_meters": 5000,
	}
}

func TestEngine_ExecuteRegister(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	out, err := e.Execute(as(ownerP, 100), ir.ActionRegister, registerArgs())
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Invocation.Seq)
	assert.Equal(t, "tok-1", out.Invocation.Token)
	assert.Equal(t, ownerP, out.Invocation.Caller)
	assert.Equal(t, int64(100), out.Invocation.Height)
	assert.Equal(t, ir.MustInvocationID("tok-1", ir.ActionRegister, out.Invocation.Args, ownerP, 100, 1), out.Invocation.ID)

	assert.Equal(t, int64(2), out.Completion.Seq)
	assert.Equal(t, ir.CaseSuccess, out.Completion.OutputCase)
	assert.Equal(t, 0, out.Completion.Code)
	assert.Equal(t, ir.Args{"equipment_id": int64(1)}, out.Completion.Result)

	eq, err := e.Registry().Get(1)
	require.NoError(t, err)
	assert.Equal(t, ownerP, eq.Owner)
	assert.Equal(t, uint64(5000), eq.CoverageRadiusMeters)
	assert.Equal(t, int64(100), eq.RegistrationDate)

	entries, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Completion)
	assert.Equal(t, out.Completion.ID, entries[0].Completion.ID)
}

func TestEngine_ExecuteNormalizesArgs(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	out, err := e.Execute(as(ownerP, 1), ir.ActionRegister, ir.Args{"model": "UAP-AC-PRO"})
	require.NoError(t, err)

	assert.Len(t, out.Invocation.Args, 14, "every attribute is journaled")
	assert.Equal(t, "UAP-AC-PRO", out.Invocation.Args["model"])
	assert.Equal(t, uint64(0), out.Invocation.Args["coverage_radius_meters"])
}

func TestEngine_ExecuteStoresJournalForm(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	args := registerArgs()
	args["serial_number"] = "SN-e\u0301"
	out, err := e.Execute(as("e\u0301-owner", 1), ir.ActionRegister, args)
	require.NoError(t, err)
	assert.Equal(t, "SN-\u00e9", out.Invocation.Args["serial_number"])
	assert.Equal(t, ir.Principal("\u00e9-owner"), out.Invocation.Caller)

	eq, err := e.Registry().Get(1)
	require.NoError(t, err)
	assert.Equal(t, "SN-\u00e9", eq.SerialNumber, "the registry holds what the journal holds")
	assert.Equal(t, ir.Principal("\u00e9-owner"), eq.Owner)

	// Either spelling of the owner is the same principal.
	for i, caller := range []ir.Principal{"e\u0301-owner", "\u00e9-owner"} {
		_, err := e.Execute(as(caller, int64(i+2)), ir.ActionSetStatus, ir.Args{"equipment_id": 1, "status": "offline"})
		assert.NoError(t, err, "caller %q", caller)
	}
}

func TestEngine_ExecuteAcceptsAnyStatus(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	_, err := e.Execute(as(ownerP, 1), ir.ActionRegister, registerArgs())
	require.NoError(t, err)

	for i, status := range []string{"", "awaiting-parts", "D\u00e9commissioned"} {
		_, err := e.Execute(as(ownerP, int64(i+2)), ir.ActionSetStatus, ir.Args{"equipment_id": 1, "status": status})
		require.NoError(t, err)
		eq, err := e.Registry().Get(1)
		require.NoError(t, err)
		assert.Equal(t, ir.Status(status), eq.Status)
	}
}

func TestEngine_ExecuteRejectionIsJournaled(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	_, err := e.Execute(as(ownerP, 100), ir.ActionRegister, registerArgs())
	require.NoError(t, err)

	out, err := e.Execute(as(otherQ, 101), ir.ActionSetStatus, ir.Args{"equipment_id": 1, "status": "decommissioned"})
	require.Error(t, err)
	assert.True(t, registry.IsUnauthorized(err))
	assert.Equal(t, ir.CaseUnauthorized, out.Completion.OutputCase)
	assert.Equal(t, 403, out.Completion.Code)
	assert.Equal(t, ir.Args{"entity": "equipment", "id": "1", "caller": string(otherQ)}, out.Completion.Result)

	out, err = e.Execute(as(ownerP, 102), ir.ActionAddMaintenance, ir.Args{"equipment_id": 9})
	assert.True(t, registry.IsNotFound(err))
	assert.Equal(t, ir.CaseNotFound, out.Completion.OutputCase)
	assert.Equal(t, 404, out.Completion.Code)

	entries, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	eq, _ := e.Registry().Get(1)
	assert.Equal(t, ir.StatusActive, eq.Status)
}

func TestEngine_ExecuteBadRequestsAreNotJournaled(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		action ir.ActionRef
		args   ir.Args
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unknown action",
			ctx:    as(ownerP, 1),
			action: "Equipment.delete",
			args:   ir.Args{"equipment_id": 1},
			check:  func(t *testing.T, err error) { assert.True(t, IsUnknownAction(err)) },
		},
		{
			name:   "missing equipment id",
			ctx:    as(ownerP, 1),
			action: ir.ActionSetStatus,
			args:   ir.Args{"status": "active"},
			check:  func(t *testing.T, err error) { assert.True(t, IsInvalidArgs(err)) },
		},
		{
			name:   "missing status",
			ctx:    as(ownerP, 1),
			action: ir.ActionSetStatus,
			args:   ir.Args{"equipment_id": 1},
			check:  func(t *testing.T, err error) { assert.True(t, IsInvalidArgs(err)) },
		},
		{
			name:   "invalid utf-8",
			ctx:    as(ownerP, 1),
			action: ir.ActionRegister,
			args:   ir.Args{"serial_number": "SN-\xff"},
			check:  func(t *testing.T, err error) { assert.True(t, IsInvalidArgs(err)) },
		},
		{
			name:   "invalid utf-8 caller",
			ctx:    as("owner-\xfe", 1),
			action: ir.ActionRegister,
			args:   registerArgs(),
			check:  func(t *testing.T, err error) { assert.True(t, IsInvalidArgs(err)) },
		},
		{
			name:   "empty new owner",
			ctx:    as(ownerP, 1),
			action: ir.ActionTransferOwnership,
			args:   ir.Args{"equipment_id": 1, "new_owner": ""},
			check:  func(t *testing.T, err error) { assert.True(t, IsInvalidArgs(err)) },
		},
		{
			name:   "negative cost",
			ctx:    as(ownerP, 1),
			action: ir.ActionAddMaintenance,
			args:   ir.Args{"equipment_id": 1, "cost": -5},
			check:  func(t *testing.T, err error) { assert.True(t, IsInvalidArgs(err)) },
		},
		{
			name:   "wrong type",
			ctx:    as(ownerP, 1),
			action: ir.ActionRegister,
			args:   ir.Args{"model": 42},
			check:  func(t *testing.T, err error) { assert.True(t, IsInvalidArgs(err)) },
		},
		{
			name:   "no caller",
			ctx:    context.Background(),
			action: ir.ActionRegister,
			args:   registerArgs(),
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, identity.ErrNoCaller) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			e := newTestEngine(t, s)

			_, err := e.Execute(tt.ctx, tt.action, tt.args)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, registry.Code(0), registry.CodeOf(err))

			entries, err := s.ReadAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestEngine_ExecuteJournalFailureLeavesRegistryUntouched(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)
	require.NoError(t, s.Close())

	_, err := e.Execute(as(ownerP, 1), ir.ActionRegister, registerArgs())
	require.Error(t, err)
	assert.True(t, IsJournalError(err))
	assert.Equal(t, 0, e.Registry().Stats().Equipment)
}

func TestEngine_WithCorrelation(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s, "unused")

	ctx := WithCorrelation(as(ownerP, 5), "import-7")
	for range 3 {
		_, err := e.Execute(ctx, ir.ActionRegister, registerArgs())
		require.NoError(t, err)
	}

	entries, err := s.ReadToken(context.Background(), "import-7")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "unused", e.NewToken(), "correlated executes do not draw tokens")
}

func TestEngine_Position(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEngine(t, s)

	_, err := e.Execute(as(ownerP, 40), ir.ActionRegister, registerArgs())
	require.NoError(t, err)
	_, err = e.Execute(as(ownerP, 30), ir.ActionSetStatus, ir.Args{"equipment_id": 1, "status": "maintenance"})
	require.NoError(t, err)

	assert.Equal(t, store.Position{Seq: 4, Height: 40}, e.Position())
}

func TestEngine_ExecuteSpans(t *testing.T) {
	s := setupTestStore(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	e := New(s, identity.ContextResolver{},
		WithTokens(NewFixedGenerator("tok-1")),
		WithTracer(tp.Tracer("test")))

	_, err := e.Execute(as(ownerP, 100), ir.ActionRegister, registerArgs())
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, tracing.SpanExecute, spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, string(ir.ActionRegister), attrs[tracing.AttrAction])
	assert.Equal(t, "1", attrs[tracing.AttrSeq])
	assert.Equal(t, ir.CaseSuccess, attrs[tracing.AttrOutcome])
}
