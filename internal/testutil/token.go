package testutil

// FixedTokenGenerator returns the same correlation token every time.
//
// A scenario run with a FixedTokenGenerator journals byte-identical
// invocations, which is what golden trace comparison relies on. Unlike
// engine.FixedGenerator, which hands out a list of tokens once each, this
// generator never runs out.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator for token. Scenarios usually
// set it in YAML:
//
//	token: "scenario-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate returns "test-token-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-token-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
