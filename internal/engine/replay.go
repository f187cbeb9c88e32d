package engine

import (
	"bytes"
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/store"
	"github.com/roach88/fieldreg/internal/tracing"
)

// Mismatch kinds.
const (
	MismatchInvocationID = "invocation_id"
	MismatchCompletionID = "completion_id"
	MismatchOutcome      = "outcome"
)

// Mismatch is a journal record that replay could not reproduce.
type Mismatch struct {
	Seq          int64        `json:"seq"`
	InvocationID string       `json:"invocation_id"`
	Action       ir.ActionRef `json:"action"`
	Kind         string       `json:"kind"`
	Recorded     string       `json:"recorded"`
	Replayed     string       `json:"replayed"`
}

// ReplayReport summarizes one replay.
type ReplayReport struct {
	Invocations int        `json:"invocations"`
	Verified    int        `json:"verified"`
	Pending     int        `json:"pending"`
	Repaired    int        `json:"repaired"`
	Mismatches  []Mismatch `json:"mismatches"`
}

// Deterministic reports whether every recorded completion was reproduced.
func (r ReplayReport) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Open rebuilds the registry from the journal and returns an engine ready to
// execute new actions after it.
//
// Every invocation is re-executed in seq order with its recorded caller and
// height. Invocations whose completion was never written (the process
// stopped between the two writes) get one written now, after the last
// recorded seq.
func Open(ctx context.Context, s *store.Store, resolver identity.Resolver, opts ...Option) (*Engine, ReplayReport, error) {
	e := New(s, resolver, opts...)
	report, err := e.replay(ctx, true)
	if err != nil {
		return nil, report, err
	}
	return e, report, nil
}

// Verify replays the journal into a scratch registry and reports whether the
// recorded outcomes are reproduced. Nothing is written.
func Verify(ctx context.Context, s *store.Store, opts ...Option) (ReplayReport, error) {
	e := New(s, identity.ContextResolver{}, opts...)
	return e.replay(ctx, false)
}

type pendingCompletion struct {
	action ir.ActionRef
	comp   ir.Completion
}

func (e *Engine) replay(ctx context.Context, repair bool) (ReplayReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, tracing.SpanReplay)
	defer span.End()

	report := ReplayReport{Mismatches: []Mismatch{}}

	entries, err := e.store.ReadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("replay: %w", err)
	}
	span.SetAttributes(attribute.Int(tracing.AttrEntries, len(entries)))

	var lastSeq int64
	var pending []pendingCompletion

	for _, entry := range entries {
		inv := entry.Invocation
		report.Invocations++
		lastSeq = max(lastSeq, inv.Seq)

		if id, err := ir.InvocationID(inv.Token, inv.Action, inv.Args, inv.Caller, inv.Height, inv.Seq); err != nil || id != inv.ID {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: inv.Seq, InvocationID: inv.ID, Action: inv.Action,
				Kind: MismatchInvocationID, Recorded: inv.ID, Replayed: id,
			})
		}

		req, err := decodeRequest(inv.Action, inv.Args)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", inv.Seq, err)
		}
		res, err := e.apply(ctx, inv, req)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", inv.Seq, err)
		}

		if entry.Completion == nil {
			report.Pending++
			pending = append(pending, pendingCompletion{action: inv.Action, comp: res.completion})
			continue
		}

		recorded := *entry.Completion
		lastSeq = max(lastSeq, recorded.Seq)
		if m, ok := compareCompletion(inv, recorded, res.completion); !ok {
			report.Mismatches = append(report.Mismatches, m)
			continue
		}
		report.Verified++
	}

	e.clock.Resume(lastSeq)

	if repair {
		for _, p := range pending {
			comp, err := seal(p.comp, e.clock.Next())
			if err != nil {
				return report, fmt.Errorf("repair: %w", err)
			}
			if err := e.store.WriteCompletion(ctx, comp); err != nil {
				return report, newJournalError(p.action, comp.Seq, err)
			}
			report.Repaired++
		}
	}

	e.logger.Debug("replayed journal",
		"invocations", report.Invocations,
		"verified", report.Verified,
		"pending", report.Pending,
		"mismatches", len(report.Mismatches))

	return report, nil
}

// compareCompletion checks a replayed completion against the recorded one.
func compareCompletion(inv ir.Invocation, recorded, replayed ir.Completion) (Mismatch, bool) {
	m := Mismatch{Seq: inv.Seq, InvocationID: inv.ID, Action: inv.Action}

	recResult, err1 := ir.MarshalCanonical(nonNil(recorded.Result))
	repResult, err2 := ir.MarshalCanonical(nonNil(replayed.Result))
	if err1 != nil || err2 != nil ||
		recorded.OutputCase != replayed.OutputCase ||
		recorded.Code != replayed.Code ||
		!bytes.Equal(recResult, repResult) {
		m.Kind = MismatchOutcome
		m.Recorded = fmt.Sprintf("%s %d %s", recorded.OutputCase, recorded.Code, recResult)
		m.Replayed = fmt.Sprintf("%s %d %s", replayed.OutputCase, replayed.Code, repResult)
		return m, false
	}

	id, err := ir.CompletionID(recorded.InvocationID, recorded.OutputCase, recorded.Code, recorded.Result, recorded.Seq)
	if err != nil || id != recorded.ID {
		m.Kind = MismatchCompletionID
		m.Recorded = recorded.ID
		m.Replayed = id
		return m, false
	}
	return m, true
}

func nonNil(a ir.Args) ir.Args {
	if a == nil {
		return ir.Args{}
	}
	return a
}
