// Package crypto provides hashing and signing primitives for the engine.
package crypto

import (
	"golang.org/x/crypto/blake2b"

	"github.com/hoosat-tools/htnforge/pkg/types"
	"github.com/zeebo/blake3"
)

// Domain keys for the keyed transaction hashes. These must match the
// consensus node exactly or locally computed IDs and sighashes diverge.
const (
	DomainTransactionID   = "TransactionID"
	DomainTransactionSign = "TransactionSigningHash"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// DomainHash computes a keyed BLAKE2b-256 hash of data under the given
// domain key, separating transaction-ID hashing from sighash hashing.
func DomainHash(domain string, data []byte) types.Hash {
	h, err := blake2b.New256([]byte(domain))
	if err != nil {
		// Domain keys are short compile-time constants; New256 only
		// fails for keys longer than 64 bytes.
		panic(err)
	}
	h.Write(data)
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE3(compressed_pubkey)[:20].
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
