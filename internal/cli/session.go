package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldreg/internal/engine"
	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/ir"
	"github.com/roach88/fieldreg/internal/store"
	"github.com/roach88/fieldreg/internal/tracing"
)

// session is one command's view of the registry: the journal, an engine
// rebuilt from it and the height clock new actions are stamped with.
type session struct {
	opts    *RootOptions
	store   *store.Store
	engine  *engine.Engine
	heights *identity.HeightClock
	tracing *tracing.Provider
	report  engine.ReplayReport
}

// openSession opens the journal and replays it. The caller must Close the
// session.
func (o *RootOptions) openSession(ctx context.Context) (*session, error) {
	provider, err := tracing.NewProvider(o.Config.Tracing)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start tracing", err)
	}

	st, err := store.Open(o.DB)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	heights := identity.NewHeightClock()
	resolver, err := o.resolver(heights)
	if err != nil {
		_ = st.Close()
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	eng, report, err := engine.Open(ctx, st, resolver,
		engine.WithLogger(o.Logger),
		engine.WithTracer(provider.Tracer()))
	if err != nil {
		_ = st.Close()
		_ = provider.Shutdown(ctx)
		return nil, WrapExitError(ExitCommandError, "failed to replay journal", err)
	}
	heights.Observe(eng.Position().Height)

	if report.Repaired > 0 {
		o.Logger.Warn("completed pending invocations", "count", report.Repaired)
	}
	if !report.Deterministic() {
		o.Logger.Warn("journal replay diverged; run fieldreg replay", "mismatches", len(report.Mismatches))
	}
	o.Logger.Debug("journal opened", "db", o.DB, "invocations", report.Invocations, "height", heights.Height())

	return &session{
		opts:    o,
		store:   st,
		engine:  eng,
		heights: heights,
		tracing: provider,
		report:  report,
	}, nil
}

// resolver picks how callers are identified: a verified token when --token
// is given, otherwise the configured principal.
func (o *RootOptions) resolver(heights identity.HeightSource) (identity.Resolver, error) {
	if o.Token == "" {
		return identity.StaticResolver{
			Principal: ir.Principal(o.Config.Principal),
			Heights:   heights,
		}, nil
	}
	r, err := identity.NewJWTResolver([]byte(o.Config.Identity.JWTSecret), o.Config.Identity.Issuer, heights)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "--token requires identity.jwt_secret", err)
	}
	return r, nil
}

// Close flushes traces and closes the journal.
func (s *session) Close() error {
	return errors.Join(
		s.store.Close(),
		s.tracing.Shutdown(context.Background()),
	)
}

// context carries the caller token and the height of the next action.
// Without --height every action moves one block past the last one.
func (s *session) context(ctx context.Context) context.Context {
	h := s.opts.Height
	if !s.opts.heightSet {
		h = s.heights.Advance()
	}
	ctx = identity.WithHeight(ctx, h)
	if s.opts.Token != "" {
		ctx = identity.WithToken(ctx, s.opts.Token)
	}
	return ctx
}

// execute runs one mutating action against the engine.
func (s *session) execute(ctx context.Context, action ir.ActionRef, args ir.Args) (engine.Outcome, error) {
	return s.engine.Execute(s.context(ctx), action, args)
}

// withSession runs fn against a session opened for cmd.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(s *session, f *OutputFormatter) error) error {
	s, err := o.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s, o.formatter(cmd))
}
