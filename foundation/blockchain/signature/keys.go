package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// privateKeyLength is the size in bytes of a secp256k1 private scalar.
const privateKeyLength = 32

// ErrInvalidPublicKey is returned when a public key can't be decoded onto
// the curve.
var ErrInvalidPublicKey = errors.New("invalid public key")

// KeyPair holds the textual encodings of a private and public key.
type KeyPair struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// GenerateKeyPair derives a new random key pair on the network curve.
func GenerateKeyPair() (KeyPair, error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generating key: %w", err)
	}

	return NewKeyPair(pk), nil
}

// NewKeyPair encodes an existing private key and its public key.
func NewKeyPair(pk *ecdsa.PrivateKey) KeyPair {
	return KeyPair{
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(pk)),
		PublicKey:  EncodePublicKey(&pk.PublicKey),
	}
}

// PublicKeyFromPrivate derives the base58 public key for a hex private key.
func PublicKeyFromPrivate(privateKey string) (string, error) {
	pk, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}

	return EncodePublicKey(&pk.PublicKey), nil
}

// EncodePublicKey renders the public key as base58 over its compressed form.
func EncodePublicKey(pub *ecdsa.PublicKey) string {
	return base58.Encode(crypto.CompressPubkey(pub))
}

// ParsePrivateKey decodes a hex encoded private key. Leading zeros may be
// omitted and an optional 0x prefix is accepted.
func ParsePrivateKey(privateKey string) (*ecdsa.PrivateKey, error) {
	s := strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}

	if len(b) > privateKeyLength {
		return nil, fmt.Errorf("private key is %d bytes, max %d", len(b), privateKeyLength)
	}

	padded := make([]byte, privateKeyLength)
	copy(padded[privateKeyLength-len(b):], b)

	pk, err := crypto.ToECDSA(padded)
	if err != nil {
		return nil, fmt.Errorf("converting private key: %w", err)
	}

	return pk, nil
}

// ParsePublicKey decodes a base58 public key, compressed or uncompressed,
// and returns its uncompressed 65 byte form.
func ParsePublicKey(publicKey string) ([]byte, error) {
	b := base58.Decode(publicKey)
	if len(b) == 0 {
		return nil, ErrInvalidPublicKey
	}

	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}

	return pub.SerializeUncompressed(), nil
}

// IsPublicKey reports whether the value decodes to a point on the curve.
func IsPublicKey(publicKey string) bool {
	_, err := ParsePublicKey(publicKey)
	return err == nil
}
