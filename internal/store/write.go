package store

import (
	"context"
	"fmt"

	"github.com/roach88/fieldreg/internal/ir"
)

// WriteInvocation inserts an invocation record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (e.g. a reused seq) still return errors.
//
// The invocation's Args are serialized to canonical JSON per RFC 8785 for
// deterministic replay.
func (s *Store) WriteInvocation(ctx context.Context, inv ir.Invocation) error {
	argsJSON, err := marshalArgs(inv.Args)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations
		(id, token, action, args, seq, caller, height, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		inv.ID,
		inv.Token,
		string(inv.Action),
		argsJSON,
		inv.Seq,
		string(inv.Caller),
		inv.Height,
		inv.EngineVersion,
		inv.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	return nil
}

// WriteCompletion inserts a completion record into the store.
// Each invocation can have exactly ONE completion (enforced by UNIQUE
// constraint on invocation_id); a second write is silently ignored.
//
// Note: The invocation referenced by InvocationID must exist (foreign key constraint).
func (s *Store) WriteCompletion(ctx context.Context, comp ir.Completion) error {
	resultJSON, err := marshalResult(comp.Result)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}

	// ON CONFLICT DO NOTHING handles both:
	// 1. Duplicate completion ID (same completion written twice)
	// 2. Duplicate invocation_id (second completion for same invocation)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO completions
		(id, invocation_id, output_case, code, result, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		comp.ID,
		comp.InvocationID,
		comp.OutputCase,
		comp.Code,
		resultJSON,
		comp.Seq,
	)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}

	return nil
}
