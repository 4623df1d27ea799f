// Package utxo models unspent outputs, coinbase maturity and coin selection.
package utxo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
)

// UTXO is an unspent transaction output as reported by the node.
// Immutable once observed; identity is the outpoint.
type UTXO struct {
	Outpoint        types.Outpoint
	Amount          types.Amount
	ScriptPublicKey types.ScriptPublicKey
	BlockDAAScore   uint64
	IsCoinbase      bool
}

// PrevOutput converts the UTXO into the form consumed by the builder
// and signer.
func (u UTXO) PrevOutput() tx.PrevOutput {
	return tx.PrevOutput{
		Outpoint:        u.Outpoint,
		Amount:          u.Amount,
		ScriptPublicKey: u.ScriptPublicKey,
	}
}

// Total sums the amounts of a UTXO set, failing on overflow.
func Total(utxos []UTXO) (types.Amount, error) {
	var total types.Amount
	var err error
	for _, u := range utxos {
		total, err = types.AddAmounts(total, u.Amount)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Wire shape: { outpoint: {...}, utxoEntry: { amount, scriptPublicKey,
// blockDaaScore, isCoinbase } } with decimal-string numbers.

type utxoEntryJSON struct {
	Amount          types.Amount          `json:"amount"`
	ScriptPublicKey types.ScriptPublicKey `json:"scriptPublicKey"`
	BlockDAAScore   string                `json:"blockDaaScore"`
	IsCoinbase      bool                  `json:"isCoinbase"`
}

type utxoJSON struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Entry    utxoEntryJSON  `json:"utxoEntry"`
}

// MarshalJSON encodes the UTXO in the node wire shape.
func (u UTXO) MarshalJSON() ([]byte, error) {
	return json.Marshal(utxoJSON{
		Outpoint: u.Outpoint,
		Entry: utxoEntryJSON{
			Amount:          u.Amount,
			ScriptPublicKey: u.ScriptPublicKey,
			BlockDAAScore:   strconv.FormatUint(u.BlockDAAScore, 10),
			IsCoinbase:      u.IsCoinbase,
		},
	})
}

// UnmarshalJSON decodes a UTXO from the node wire shape.
func (u *UTXO) UnmarshalJSON(data []byte) error {
	var j utxoJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	daa, err := strconv.ParseUint(j.Entry.BlockDAAScore, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid blockDaaScore %q: %w", j.Entry.BlockDAAScore, err)
	}
	u.Outpoint = j.Outpoint
	u.Amount = j.Entry.Amount
	u.ScriptPublicKey = j.Entry.ScriptPublicKey
	u.BlockDAAScore = daa
	u.IsCoinbase = j.Entry.IsCoinbase
	return nil
}
