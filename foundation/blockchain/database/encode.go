package database

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// textEncoding is the consensus text encoding. Every character is written
// as a big endian 16 bit code unit with no byte order mark, so nodes hash the
// same bytes regardless of their native byte order.
var textEncoding = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// encodeFields concatenates the fields with no length prefixes or delimiters
// and encodes them with the consensus text encoding.
//
// NOTE: Without delimiters, adjacent fields can shift characters between
// them and still produce the same bytes ("AB"+"1" and "A"+"B1"). Peers depend
// on this exact layout so it can't change without a protocol version bump.
func encodeFields(fields ...string) ([]byte, error) {
	return textEncoding.NewEncoder().Bytes([]byte(strings.Join(fields, "")))
}

// hashHex returns the SHA-256 of the data as uppercase hex.
func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
