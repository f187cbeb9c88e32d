package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/registry"
	"github.com/roach88/fieldreg/internal/store"
	"github.com/roach88/fieldreg/internal/tracing"
)

// TokenGenerator generates correlation tokens for groups of invocations.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// Engine is the single writer in front of the registry.
//
// Every mutating action goes through Execute, which journals the
// invocation, runs it against the registry and journals the completion,
// all under one mutex. Reads go straight to Registry().
//
// INVARIANTS:
//   - An invocation is journaled before the registry sees it
//   - seq values are strictly increasing across invocations and completions
//   - The registry is only mutated through Execute and replay
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	registry *registry.Service
	resolver identity.Resolver
	clock    seqClock
	tokens   TokenGenerator
	tracer   trace.Tracer
	logger   *slog.Logger
	height   int64 // highest height executed so far
}

// Option configures an Engine.
type Option func(*Engine)

// WithTokens sets the correlation token generator.
// Default: UUIDv7Generator.
func WithTokens(g TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithTracer sets the tracer used for execute and replay spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLogger sets the engine logger. The registry logs through it too.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine over an empty registry. Callers resume an existing
// journal with Open instead.
//
// The resolver supplies the caller and height of each Execute. The registry
// itself always resolves from the context the engine hands it, which is how
// replay re-runs invocations with their recorded identity.
func New(s *store.Store, resolver identity.Resolver, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		resolver: resolver,
		tokens:   UUIDv7Generator{},
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = registry.NewService(identity.ContextResolver{}, registry.WithLogger(e.logger))
	return e
}

// Registry returns the registry for read operations.
func (e *Engine) Registry() *registry.Service {
	return e.registry
}

// Position returns the last seq stamped and the highest height executed.
func (e *Engine) Position() store.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return store.Position{Seq: e.clock.Current(), Height: e.height}
}

// NewToken generates a correlation token. Callers that want several
// Execute calls grouped under one token put it on the context with
// WithCorrelation.
func (e *Engine) NewToken() string {
	return e.tokens.Generate()
}

type tokenKey struct{}

// WithCorrelation returns a context whose Execute calls share token.
func WithCorrelation(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func correlationFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok && t != ""
}

// Outcome is the journaled record of one Execute.
type Outcome struct {
	Invocation ir.Invocation
	Completion ir.Completion
}

// Execute runs one mutating action.
//
// The returned error is a *registry.Error when the registry rejected the
// action (the rejection is journaled and Outcome is filled in), or a
// *RuntimeError / wrapped resolver error when nothing reached the registry.
func (e *Engine) Execute(ctx context.Context, action ir.ActionRef, args ir.Args) (Outcome, error) {
	req, err := decodeRequest(action, args)
	if err != nil {
		return Outcome{}, err
	}

	who, err := e.resolver.Resolve(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: resolve caller: %w", action, err)
	}
	// Owners are compared byte for byte, so callers take the same form as
	// the new_owner args they are matched against.
	caller, err := ir.NormalizeString(string(who.Caller))
	if err != nil {
		return Outcome{}, newInvalidArgs(action, fmt.Errorf("caller: %w", err))
	}
	who.Caller = ir.Principal(caller)

	token, ok := correlationFrom(ctx)
	if !ok {
		token = e.tokens.Generate()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, tracing.SpanExecute, trace.WithAttributes(
		attribute.String(tracing.AttrAction, string(action)),
		attribute.String(tracing.AttrToken, token),
		attribute.String(tracing.AttrCaller, string(who.Caller)),
		attribute.Int64(tracing.AttrHeight, who.Height),
	))
	defer span.End()

	inv := ir.Invocation{
		Token:         token,
		Action:        action,
		Args:          req.args(),
		Seq:           e.clock.Next(),
		Caller:        who.Caller,
		Height:        who.Height,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	inv.ID, err = ir.InvocationID(inv.Token, inv.Action, inv.Args, inv.Caller, inv.Height, inv.Seq)
	if err != nil {
		return Outcome{}, newInvalidArgs(action, err)
	}
	span.SetAttributes(attribute.Int64(tracing.AttrSeq, inv.Seq))

	if err := e.store.WriteInvocation(ctx, inv); err != nil {
		e.logger.Warn("journal write failed", "action", action, "seq", inv.Seq, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal write failed")
		return Outcome{}, newJournalError(action, inv.Seq, err)
	}

	res, err := e.apply(ctx, inv, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{Invocation: inv}, err
	}

	comp, err := seal(res.completion, e.clock.Next())
	if err != nil {
		span.RecordError(err)
		return Outcome{Invocation: inv}, fmt.Errorf("%s: %w", action, err)
	}
	if err := e.store.WriteCompletion(ctx, comp); err != nil {
		e.logger.Warn("journal write failed", "action", action, "seq", comp.Seq, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal write failed")
		return Outcome{Invocation: inv}, newJournalError(action, comp.Seq, err)
	}

	span.SetAttributes(
		attribute.String(tracing.AttrOutcome, comp.OutputCase),
		attribute.Int(tracing.AttrCode, comp.Code),
	)
	e.logger.Debug("executed",
		"action", action, "seq", inv.Seq, "caller", who.Caller, "outcome", comp.OutputCase)

	return Outcome{Invocation: inv, Completion: comp}, res.rejected
}

// applied is the result of running one invocation. rejected holds the
// registry error for NotFound and Unauthorized outcomes.
type applied struct {
	completion ir.Completion // Seq and ID unset until sealed
	rejected   error
}

// apply runs inv against the registry with its recorded identity. Callers
// hold e.mu.
func (e *Engine) apply(ctx context.Context, inv ir.Invocation, req request) (applied, error) {
	ctx = identity.With(ctx, identity.Identity{Caller: inv.Caller, Height: inv.Height})
	result, applyErr := req.apply(ctx, e.registry)

	outputCase, code, result, err := outcome(result, applyErr)
	if err != nil {
		return applied{}, fmt.Errorf("%s: %w", inv.Action, err)
	}
	e.height = max(e.height, inv.Height)

	return applied{
		completion: ir.Completion{
			InvocationID: inv.ID,
			OutputCase:   outputCase,
			Code:         code,
			Result:       result,
		},
		rejected: applyErr,
	}, nil
}

// seal stamps a completion with its seq and content-addressed id.
func seal(comp ir.Completion, seq int64) (ir.Completion, error) {
	comp.Seq = seq
	id, err := ir.CompletionID(comp.InvocationID, comp.OutputCase, comp.Code, comp.Result, comp.Seq)
	if err != nil {
		return ir.Completion{}, fmt.Errorf("completion id: %w", err)
	}
	comp.ID = id
	return comp, nil
}
