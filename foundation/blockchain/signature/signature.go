// Package signature provides the hashing support used to produce and check
// block digests.
package signature

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroHash represents a hash code of zeros. It is the previous hash of the
// genesis block.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// HashLength is the number of hex characters in every digest.
const HashLength = 2 * sha256.Size

// =============================================================================

// Hash returns the SHA-256 digest of the input as 64 lowercase hex
// characters without a 0x prefix.
func Hash(input string) string {
	hash := sha256.Sum256([]byte(input))
	return common.Bytes2Hex(hash[:])
}

// HashValue returns the digest of the JSON form of the value. It returns the
// zero hash if the value can't be marshaled.
func HashValue(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return Hash(string(data))
}

// IsHash reports whether s looks like a digest produced by Hash.
func IsHash(s string) bool {
	if len(s) != HashLength {
		return false
	}

	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}
