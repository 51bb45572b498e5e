package jwt

import (
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

// ErrInvalidToken covers every verification failure: malformed input, bad
// signature, and expiry. Callers cannot distinguish the causes.
var ErrInvalidToken = errors.New("invalid token")

// Codec signs and verifies access tokens with a single process-wide HMAC
// secret. Rotating the secret invalidates every outstanding token, which is
// the accepted cost of keeping tokens stateless.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec constructs a codec from the configured secret and default TTL.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token whose subject is the account email, expiring ttl from
// now. Expiry travels inside the token; nothing is recorded server-side.
func (c *Codec) Issue(subject string) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: c.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	claims := gojwt.Claims{
		Subject:  subject,
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(c.ttl)),
	}

	token, err := gojwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize jwt: %w", err)
	}
	return token, nil
}

// Verify checks the signature and expiry and returns the claims set. Expiry
// is enforced with zero leeway; a token is dead the second its exp passes.
// It never consults the store; resolving the subject to a live account is
// the caller's concern.
func (c *Codec) Verify(token string) (gojwt.Claims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return gojwt.Claims{}, ErrInvalidToken
	}

	var claims gojwt.Claims
	if err := parsed.Claims(c.secret, &claims); err != nil {
		return gojwt.Claims{}, ErrInvalidToken
	}

	if err := claims.ValidateWithLeeway(gojwt.Expected{Time: time.Now().UTC()}, 0); err != nil {
		return gojwt.Claims{}, ErrInvalidToken
	}

	return claims, nil
}
