package tx

import (
	"encoding/binary"
	"fmt"

	"github.com/hoosat-tools/htnforge/pkg/crypto"
	"github.com/hoosat-tools/htnforge/pkg/types"
)

// SigHashAll commits the signature to every input and output.
const SigHashAll = 0x01

// PrevOutput describes the UTXO consumed by a transaction input: the
// outpoint it spends plus the amount and locking script committed to by
// the signature.
type PrevOutput struct {
	Outpoint        types.Outpoint
	Amount          types.Amount
	ScriptPublicKey types.ScriptPublicKey
}

// SignatureHash computes the SIGHASH_ALL digest for one input: the
// canonical encoding with the spent UTXO's locking script substituted at
// inputIndex and all other signature scripts blanked, followed by the
// input index, the spent amount and the hash-type byte, hashed under the
// signing domain key.
func SignatureHash(t *Transaction, inputIndex int, prev PrevOutput) (types.Hash, error) {
	if inputIndex < 0 || inputIndex >= len(t.Inputs) {
		return types.Hash{}, fmt.Errorf("input index %d out of range [0,%d)", inputIndex, len(t.Inputs))
	}

	buf := t.encode(encodeForSigning, inputIndex, prev.ScriptPublicKey.Script)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(inputIndex))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(prev.Amount))
	buf = binary.LittleEndian.AppendUint16(buf, prev.ScriptPublicKey.Version)
	buf = append(buf, SigHashAll)

	return crypto.DomainHash(crypto.DomainTransactionSign, buf), nil
}

// SignInput computes the signature script for one input: a Schnorr
// signature over the input's sighash followed by the compressed public
// key, both length-prefixed. The key is not checked against the spent
// locking script; signing with the wrong key produces a script the
// network will reject.
func SignInput(t *Transaction, inputIndex int, key *crypto.PrivateKey, prev PrevOutput) ([]byte, error) {
	hash, err := SignatureHash(t, inputIndex, prev)
	if err != nil {
		return nil, err
	}
	sig, err := key.Sign(hash[:])
	if err != nil {
		return nil, fmt.Errorf("sign input %d: %w", inputIndex, err)
	}
	pubKey := key.PublicKey()

	script := make([]byte, 0, 2+len(sig)+len(pubKey)+1)
	script = append(script, byte(len(sig)+1))
	script = append(script, sig...)
	script = append(script, SigHashAll)
	script = append(script, byte(len(pubKey)))
	script = append(script, pubKey...)
	return script, nil
}
