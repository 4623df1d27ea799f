// Package tx implements transaction construction, fee pricing and signing.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/hoosat-tools/htnforge/pkg/crypto"
	"github.com/hoosat-tools/htnforge/pkg/types"
)

// DefaultSequence is the sequence value for standard inputs.
const DefaultSequence uint64 = 0

// Transaction represents a transaction in the engine's canonical form.
type Transaction struct {
	Version      uint16
	Inputs       []*Input
	Outputs      []*Output
	LockTime     uint64
	SubnetworkID types.SubnetworkID
	Gas          uint64
	Payload      []byte
}

// Input spends one previous output.
type Input struct {
	PreviousOutpoint types.Outpoint
	SignatureScript  []byte
	Sequence         uint64
	SigOpCount       uint8
}

// Output creates one new UTXO.
type Output struct {
	Amount          types.Amount
	ScriptPublicKey types.ScriptPublicKey
}

// ID computes the transaction ID: a keyed BLAKE2b-256 hash over the
// canonical encoding with all signature scripts zero-length, so signing
// never changes the ID.
func (t *Transaction) ID() types.TransactionID {
	h := crypto.DomainHash(crypto.DomainTransactionID, t.encode(encodeForID, 0, nil))
	return types.TransactionID(h)
}

// TotalOutputAmount returns the sum of all output amounts.
// Returns an error if the sum overflows uint64.
func (t *Transaction) TotalOutputAmount() (types.Amount, error) {
	var total types.Amount
	for _, out := range t.Outputs {
		if uint64(total) > math.MaxUint64-uint64(out.Amount) {
			return 0, fmt.Errorf("output amount overflow")
		}
		total += out.Amount
	}
	return total, nil
}

// encodeMode selects how signature scripts enter the canonical encoding.
type encodeMode int

const (
	// encodeForID blanks every signature script.
	encodeForID encodeMode = iota
	// encodeForSigning substitutes the spent script at one input and
	// blanks all others, per SIGHASH semantics.
	encodeForSigning
	// encodeFull serializes signature scripts as-is.
	encodeFull
)

// encode returns the canonical byte representation.
// Layout: version(2) | inputCount(8) | [outpoint(36) scriptLen(8) script seq(8)]...
// | outputCount(8) | [amount(8) scriptVersion(2) scriptLen(8) script]...
// | locktime(8) | subnetwork(20) | gas(8) | payloadLen(8) | payload
func (t *Transaction) encode(mode encodeMode, signIdx int, signScript []byte) []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint16(buf, t.Version)

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(t.Inputs)))
	for i, in := range t.Inputs {
		buf = append(buf, in.PreviousOutpoint.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PreviousOutpoint.Index)

		var script []byte
		switch {
		case mode == encodeFull:
			script = in.SignatureScript
		case mode == encodeForSigning && i == signIdx:
			script = signScript
		}
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(script)))
		buf = append(buf, script...)
		buf = binary.LittleEndian.AppendUint64(buf, in.Sequence)
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Amount))
		buf = binary.LittleEndian.AppendUint16(buf, out.ScriptPublicKey.Version)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(out.ScriptPublicKey.Script)))
		buf = append(buf, out.ScriptPublicKey.Script...)
	}

	buf = binary.LittleEndian.AppendUint64(buf, t.LockTime)
	buf = append(buf, t.SubnetworkID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, t.Gas)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(t.Payload)))
	buf = append(buf, t.Payload...)

	return buf
}

// SerializeFull returns the canonical encoding including signature scripts.
// Two fully signed transactions are interchangeable iff these bytes match.
func (t *Transaction) SerializeFull() []byte {
	return t.encode(encodeFull, 0, nil)
}

// Wire JSON shapes. Amounts, sequence, locktime and gas cross the wire
// as decimal strings; scripts and payloads as hex.

type inputJSON struct {
	PreviousOutpoint types.Outpoint `json:"previousOutpoint"`
	SignatureScript  string         `json:"signatureScript"`
	Sequence         uint64String   `json:"sequence"`
	SigOpCount       uint8          `json:"sigOpCount"`
}

type outputJSON struct {
	Amount          types.Amount          `json:"amount"`
	ScriptPublicKey types.ScriptPublicKey `json:"scriptPublicKey"`
}

type transactionJSON struct {
	Version      uint16             `json:"version"`
	Inputs       []inputJSON        `json:"inputs"`
	Outputs      []outputJSON       `json:"outputs"`
	LockTime     uint64String       `json:"lockTime"`
	SubnetworkID types.SubnetworkID `json:"subnetworkId"`
	Gas          uint64String       `json:"gas"`
	Payload      string             `json:"payload"`
}

// uint64String marshals a uint64 as a decimal JSON string.
type uint64String uint64

// MarshalJSON encodes the value as a decimal string.
func (u uint64String) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

// UnmarshalJSON decodes a decimal string (or bare number).
func (u *uint64String) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 string %q: %w", s, err)
	}
	*u = uint64String(v)
	return nil
}

// MarshalJSON encodes the transaction in the node submission shape.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	j := transactionJSON{
		Version:      t.Version,
		Inputs:       make([]inputJSON, len(t.Inputs)),
		Outputs:      make([]outputJSON, len(t.Outputs)),
		LockTime:     uint64String(t.LockTime),
		SubnetworkID: t.SubnetworkID,
		Gas:          uint64String(t.Gas),
		Payload:      hex.EncodeToString(t.Payload),
	}
	for i, in := range t.Inputs {
		j.Inputs[i] = inputJSON{
			PreviousOutpoint: in.PreviousOutpoint,
			SignatureScript:  hex.EncodeToString(in.SignatureScript),
			Sequence:         uint64String(in.Sequence),
			SigOpCount:       in.SigOpCount,
		}
	}
	for i, out := range t.Outputs {
		j.Outputs[i] = outputJSON{
			Amount:          out.Amount,
			ScriptPublicKey: out.ScriptPublicKey,
		}
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a transaction from the node wire shape.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var j transactionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	payload, err := hex.DecodeString(j.Payload)
	if err != nil {
		return fmt.Errorf("invalid payload hex: %w", err)
	}
	t.Version = j.Version
	t.LockTime = uint64(j.LockTime)
	t.SubnetworkID = j.SubnetworkID
	t.Gas = uint64(j.Gas)
	t.Payload = payload
	t.Inputs = make([]*Input, len(j.Inputs))
	for i, in := range j.Inputs {
		sig, err := hex.DecodeString(in.SignatureScript)
		if err != nil {
			return fmt.Errorf("input %d: invalid signature script hex: %w", i, err)
		}
		t.Inputs[i] = &Input{
			PreviousOutpoint: in.PreviousOutpoint,
			SignatureScript:  sig,
			Sequence:         uint64(in.Sequence),
			SigOpCount:       in.SigOpCount,
		}
	}
	t.Outputs = make([]*Output, len(j.Outputs))
	for i, out := range j.Outputs {
		t.Outputs[i] = &Output{
			Amount:          out.Amount,
			ScriptPublicKey: out.ScriptPublicKey,
		}
	}
	return nil
}
