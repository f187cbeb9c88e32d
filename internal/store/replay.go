package store

import (
	"context"
	"fmt"
)

// Position is where a journal left off: the last logical seq and the
// highest block height any invocation ran at.
type Position struct {
	Seq    int64
	Height int64
}

// LastPosition returns the journal position. Used to resume the logical
// clock and the height source after replay.
func (s *Store) LastPosition(ctx context.Context) (Position, error) {
	var pos Position

	var invSeq, compSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0), COALESCE(MAX(height), 0) FROM invocations
	`).Scan(&invSeq, &pos.Height)
	if err != nil {
		return Position{}, fmt.Errorf("get last position from invocations: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM completions
	`).Scan(&compSeq)
	if err != nil {
		return Position{}, fmt.Errorf("get last seq from completions: %w", err)
	}

	pos.Seq = max(invSeq, compSeq)
	return pos, nil
}

// ListTokens returns all distinct correlation tokens in the journal, in the
// order they first appeared.
func (s *Store) ListTokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token FROM invocations
		GROUP BY token
		ORDER BY MIN(seq)
	`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}

// CountPending returns the number of invocations without a completion.
// A non-zero count means a process stopped between journaling an
// invocation and journaling its outcome.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM invocations i
		LEFT JOIN completions c ON c.invocation_id = i.id
		WHERE c.id IS NULL
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}
