package signing

import (
	"context"
	"crypto/sha256"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod is ES256 backed by a Signer. It only signs; verification is
// delegated to the stock ES256 method.
var SigningMethod = &signingMethod{}

type signingMethod struct{}

// key is what SignedString receives; jwt has no context on its Sign call.
type key struct {
	ctx    context.Context
	signer Signer
}

func (*signingMethod) Alg() string { return jwt.SigningMethodES256.Alg() }

func (*signingMethod) Sign(signingString string, k any) ([]byte, error) {
	sk, ok := k.(key)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	digest := sha256.Sum256([]byte(signingString))
	return sk.signer.Sign(sk.ctx, digest[:])
}

func (*signingMethod) Verify(signingString string, sig []byte, k any) error {
	return jwt.SigningMethodES256.Verify(signingString, sig, k)
}

// SignClaims returns a compact JWS of claims with the signer's kid.
func SignClaims(ctx context.Context, signer Signer, claims jwt.Claims) (string, error) {
	if signer == nil {
		return "", errors.New("no signer configured")
	}
	token := jwt.NewWithClaims(SigningMethod, claims)
	if kid := signer.KeyID(); kid != "" {
		token.Header["kid"] = kid
	}
	return token.SignedString(key{ctx: ctx, signer: signer})
}
