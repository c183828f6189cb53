// Package signing signs JWTs with a P-256 key held locally or in AWS KMS.
//
// Both signers produce JOSE (r||s) signatures over a SHA-256 digest so the
// result plugs into golang-jwt through SigningMethod.
package signing

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// p256 coordinates are 32 bytes; a JOSE ES256 signature is r||s.
const coordinateSize = 32

// Signer signs a SHA-256 digest and returns a JOSE ES256 signature.
type Signer interface {
	KeyID() string
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

// LocalSigner signs with an in-process key. Used outside deployed environments.
type LocalSigner struct {
	key   *ecdsa.PrivateKey
	keyID string
}

func NewLocalSigner(key *ecdsa.PrivateKey, keyID string) *LocalSigner {
	return &LocalSigner{key: key, keyID: keyID}
}

// LoadLocalSigner reads a PEM encoded EC private key (SEC1 or PKCS#8).
func LoadLocalSigner(path, keyID string) (*LocalSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("signing key: no PEM block found")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return NewLocalSigner(key, keyID), nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key: expected EC key, got %T", parsed)
	}
	return NewLocalSigner(key, keyID), nil
}

func (s *LocalSigner) KeyID() string { return s.keyID }

func (s *LocalSigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	r, sv, err := ecdsa.Sign(rand.Reader, s.key, digest)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	return joseSignature(r, sv), nil
}

// Public returns the verification key.
func (s *LocalSigner) Public() *ecdsa.PublicKey { return &s.key.PublicKey }

// KMSAPI is the part of the KMS client the signer calls.
type KMSAPI interface {
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// KMSSigner signs with an asymmetric ECC_NIST_P256 key held in KMS.
type KMSSigner struct {
	client KMSAPI
	keyARN string
	keyID  string
}

// NewKMSSigner signs with keyARN. keyID is the kid placed in JWT headers.
func NewKMSSigner(client KMSAPI, keyARN, keyID string) *KMSSigner {
	return &KMSSigner{client: client, keyARN: keyARN, keyID: keyID}
}

func (s *KMSSigner) KeyID() string { return s.keyID }

func (s *KMSSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	out, err := s.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyARN),
		Message:          digest,
		MessageType:      kmstypes.MessageTypeDigest,
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecEcdsaSha256,
	})
	if err != nil {
		return nil, fmt.Errorf("kms sign: %w", err)
	}
	return derToJOSE(out.Signature)
}

// derToJOSE converts an ASN.1 ECDSA-Sig-Value into fixed width r||s.
func derToJOSE(der []byte) ([]byte, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, errors.New("malformed DER ecdsa signature")
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || len(r.Bytes()) > coordinateSize || len(s.Bytes()) > coordinateSize {
		return nil, errors.New("ecdsa signature out of range for P-256")
	}
	return joseSignature(r, s), nil
}

func joseSignature(r, s *big.Int) []byte {
	out := make([]byte, 2*coordinateSize)
	r.FillBytes(out[:coordinateSize])
	s.FillBytes(out[coordinateSize:])
	return out
}
