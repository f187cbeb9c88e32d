package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/fieldreg/internal/ir"
)

// DefaultTokenTTL is the lifetime of tokens minted by IssueToken when no
// TTL is given.
const DefaultTokenTTL = 24 * time.Hour

const cacheCleanupInterval = 10 * time.Minute

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("identity: invalid token")

// Claims are the JWT claims of a registry bearer token. The principal is
// carried in the subject.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver resolves the caller from an HS256 bearer token carried on the
// context with WithToken. Verified tokens are cached until they expire.
type JWTResolver struct {
	secret  []byte
	issuer  string
	heights HeightSource
	cache   *gocache.Cache
	now     func() time.Time
}

// NewJWTResolver creates a resolver verifying tokens signed with secret.
// An empty issuer accepts any issuer.
func NewJWTResolver(secret []byte, issuer string, heights HeightSource) (*JWTResolver, error) {
	if len(secret) == 0 {
		return nil, errors.New("identity: empty jwt secret")
	}
	return &JWTResolver{
		secret:  secret,
		issuer:  issuer,
		heights: heights,
		cache:   gocache.New(gocache.NoExpiration, cacheCleanupInterval),
		now:     time.Now,
	}, nil
}

// Resolve implements Resolver.
func (r *JWTResolver) Resolve(ctx context.Context) (Identity, error) {
	tok, ok := TokenFrom(ctx)
	if !ok {
		return Identity{}, ErrNoCaller
	}
	p, err := r.Verify(tok)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Caller: p, Height: heightOf(ctx, r.heights)}, nil
}

// Verify checks the token's signature and claims and returns its principal.
func (r *JWTResolver) Verify(token string) (ir.Principal, error) {
	if v, found := r.cache.Get(token); found {
		if p, ok := v.(ir.Principal); ok {
			return p, nil
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	p := ir.Principal(claims.Subject)
	ttl := gocache.NoExpiration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(r.now())
	}
	if ttl != gocache.NoExpiration && ttl <= 0 {
		return "", ErrInvalidToken
	}
	r.cache.Set(token, p, ttl)
	return p, nil
}

// IssueToken mints an HS256 token for principal p.
func IssueToken(secret []byte, issuer string, p ir.Principal, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if p == "" {
		return "", time.Time{}, ErrNoCaller
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	expires := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(p),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}
