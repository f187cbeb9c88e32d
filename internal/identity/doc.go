// Package identity supplies the calling principal and the current block
// height for registry operations.
//
// The registry trusts whatever a Resolver returns. Adapters:
//   - ContextResolver reads the principal and height carried on the context
//   - StaticResolver always answers with one principal
//   - JWTResolver verifies an HS256 bearer token carried on the context
//
// Heights come from the context when set there, otherwise from a
// HeightSource such as HeightClock.
package identity
