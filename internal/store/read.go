package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/fieldreg/internal/ir"
)

// Entry pairs an invocation with its completion. Completion is nil for an
// invocation whose outcome was never written.
type Entry struct {
	Invocation ir.Invocation
	Completion *ir.Completion
}

const entryColumns = `
	i.id, i.token, i.action, i.args, i.seq, i.caller, i.height, i.engine_version, i.ir_version,
	c.id, c.invocation_id, c.output_case, c.code, c.result, c.seq`

const entryFrom = `
	FROM invocations i
	LEFT JOIN completions c ON c.invocation_id = i.id`

// Filter narrows ReadEntries. Zero fields match everything.
type Filter struct {
	Token       string
	Action      ir.ActionRef
	EquipmentID int64
}

// ReadEntries returns journal entries matching f.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadEntries(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT` + entryColumns + entryFrom + ` WHERE 1 = 1`
	var args []any
	if f.Token != "" {
		query += ` AND i.token = ?`
		args = append(args, f.Token)
	}
	if f.Action != "" {
		query += ` AND i.action = ?`
		args = append(args, string(f.Action))
	}
	if f.EquipmentID != 0 {
		// Registration carries the new id in its result, everything else in
		// its args.
		query += ` AND (json_extract(i.args, '$.equipment_id') = ?
			OR (i.action = ? AND json_extract(c.result, '$.equipment_id') = ?))`
		args = append(args, f.EquipmentID, string(ir.ActionRegister), f.EquipmentID)
	}
	query += ` ORDER BY i.seq ASC, i.id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// ReadAll returns every journal entry in seq order. Used for replay.
func (s *Store) ReadAll(ctx context.Context) ([]Entry, error) {
	return s.ReadEntries(ctx, Filter{})
}

// ReadToken returns the entries recorded under one correlation token.
func (s *Store) ReadToken(ctx context.Context, token string) ([]Entry, error) {
	return s.ReadEntries(ctx, Filter{Token: token})
}

// ReadInvocation retrieves a single invocation by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadInvocation(ctx context.Context, id string) (ir.Invocation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, action, args, seq, caller, height, engine_version, ir_version
		FROM invocations
		WHERE id = ?
	`, id)

	var inv ir.Invocation
	var action, caller, argsJSON string
	if err := row.Scan(
		&inv.ID, &inv.Token, &action, &argsJSON, &inv.Seq,
		&caller, &inv.Height, &inv.EngineVersion, &inv.IRVersion,
	); err != nil {
		return ir.Invocation{}, err
	}
	inv.Action = ir.ActionRef(action)
	inv.Caller = ir.Principal(caller)

	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return ir.Invocation{}, err
	}
	inv.Args = args
	return inv, nil
}

// ReadCompletionFor retrieves the completion of an invocation.
// Returns sql.ErrNoRows if the invocation has no completion.
func (s *Store) ReadCompletionFor(ctx context.Context, invocationID string) (ir.Completion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, invocation_id, output_case, code, result, seq
		FROM completions
		WHERE invocation_id = ?
	`, invocationID)

	var comp ir.Completion
	var resultJSON string
	if err := row.Scan(
		&comp.ID, &comp.InvocationID, &comp.OutputCase, &comp.Code, &resultJSON, &comp.Seq,
	); err != nil {
		return ir.Completion{}, err
	}

	result, err := unmarshalResult(resultJSON)
	if err != nil {
		return ir.Completion{}, err
	}
	comp.Result = result
	return comp, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var inv ir.Invocation
	var action, caller, argsJSON string
	var (
		compID, compInv, compCase, compResult sql.NullString
		compCode, compSeq                     sql.NullInt64
	)

	if err := rows.Scan(
		&inv.ID, &inv.Token, &action, &argsJSON, &inv.Seq, &caller, &inv.Height,
		&inv.EngineVersion, &inv.IRVersion,
		&compID, &compInv, &compCase, &compCode, &compResult, &compSeq,
	); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	inv.Action = ir.ActionRef(action)
	inv.Caller = ir.Principal(caller)
	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return Entry{}, err
	}
	inv.Args = args

	e := Entry{Invocation: inv}
	if !compID.Valid {
		return e, nil
	}

	result, err := unmarshalResult(compResult.String)
	if err != nil {
		return Entry{}, err
	}
	e.Completion = &ir.Completion{
		ID:           compID.String,
		InvocationID: compInv.String,
		OutputCase:   compCase.String,
		Code:         int(compCode.Int64),
		Result:       result,
		Seq:          compSeq.Int64,
	}
	return e, nil
}
