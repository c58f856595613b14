// Package signature provides helper functions for handling the blockchain
// signature needs. Every node signs and verifies with ECDSA over the
// secp256k1 curve using SHA-256 digests. Private keys travel as hex encoded
// integers, public keys and signatures as base58 strings.
package signature

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"
)

// signatureLength is the size of the [R || S] signature without the
// recovery id that go-ethereum appends.
const signatureLength = crypto.SignatureLength - 1

// ErrInvalidSignature is returned when a signature can't be decoded.
var ErrInvalidSignature = errors.New("invalid signature encoding")

// =============================================================================

// SignString uses the specified hex private key to sign the contents. The
// nonce is derived per RFC 6979 so the same contents and key always
// produce the same signature.
func SignString(contents string, privateKey string) (string, error) {
	pk, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256([]byte(contents))

	sig, err := crypto.Sign(digest[:], pk)
	if err != nil {
		return "", fmt.Errorf("signing contents: %w", err)
	}

	return base58.Encode(sig[:signatureLength]), nil
}

// SignatureIsValid reports whether the base58 signature was produced over
// the contents by the private key belonging to the base58 public key.
func SignatureIsValid(signature string, contents string, publicKey string) bool {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return false
	}

	sig, err := decodeSignature(signature)
	if err != nil {
		return false
	}

	digest := sha256.Sum256([]byte(contents))

	return crypto.VerifySignature(pub, digest[:], sig)
}

// =============================================================================

// decodeSignature converts the base58 signature into its [R || S] bytes.
func decodeSignature(signature string) ([]byte, error) {
	sig := base58.Decode(signature)
	if len(sig) != signatureLength {
		return nil, ErrInvalidSignature
	}

	return sig, nil
}
