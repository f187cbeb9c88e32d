package identity

import (
	"context"
	"errors"

	"github.com/roach88/fieldreg/internal/ir"
)

// ErrNoCaller is returned when no principal can be resolved for an operation.
var ErrNoCaller = errors.New("identity: no caller principal")

// Identity is the resolved caller and block height for one operation.
type Identity struct {
	Caller ir.Principal
	Height int64
}

// Resolver resolves the identity of the current operation.
type Resolver interface {
	Resolve(ctx context.Context) (Identity, error)
}

// HeightSource reports the current block height.
type HeightSource interface {
	Height() int64
}

type ctxKey int

const (
	callerKey ctxKey = iota
	heightKey
	tokenKey
)

// WithCaller returns a context carrying the caller principal.
func WithCaller(ctx context.Context, p ir.Principal) context.Context {
	return context.WithValue(ctx, callerKey, p)
}

// WithHeight returns a context carrying an explicit block height.
func WithHeight(ctx context.Context, h int64) context.Context {
	return context.WithValue(ctx, heightKey, h)
}

// WithToken returns a context carrying a bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// With returns a context carrying both halves of id.
func With(ctx context.Context, id Identity) context.Context {
	return WithHeight(WithCaller(ctx, id.Caller), id.Height)
}

// CallerFrom returns the caller principal carried on ctx.
func CallerFrom(ctx context.Context) (ir.Principal, bool) {
	p, ok := ctx.Value(callerKey).(ir.Principal)
	return p, ok && p != ""
}

// HeightFrom returns the explicit block height carried on ctx.
func HeightFrom(ctx context.Context) (int64, bool) {
	h, ok := ctx.Value(heightKey).(int64)
	return h, ok
}

// TokenFrom returns the bearer token carried on ctx.
func TokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}

func heightOf(ctx context.Context, src HeightSource) int64 {
	if h, ok := HeightFrom(ctx); ok {
		return h
	}
	if src == nil {
		return 0
	}
	return src.Height()
}

// ContextResolver resolves the caller from the context. Heights come from
// the context, falling back to Heights.
type ContextResolver struct {
	Heights HeightSource
}

// Resolve implements Resolver.
func (r ContextResolver) Resolve(ctx context.Context) (Identity, error) {
	p, ok := CallerFrom(ctx)
	if !ok {
		return Identity{}, ErrNoCaller
	}
	return Identity{Caller: p, Height: heightOf(ctx, r.Heights)}, nil
}

// StaticResolver answers with the same principal for every operation.
// A caller carried on the context still takes precedence.
type StaticResolver struct {
	Principal ir.Principal
	Heights   HeightSource
}

// Resolve implements Resolver.
func (r StaticResolver) Resolve(ctx context.Context) (Identity, error) {
	p, ok := CallerFrom(ctx)
	if !ok {
		p = r.Principal
	}
	if p == "" {
		return Identity{}, ErrNoCaller
	}
	return Identity{Caller: p, Height: heightOf(ctx, r.Heights)}, nil
}
