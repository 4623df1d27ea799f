package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ScriptClass identifies the kind of locking script.
type ScriptClass uint8

const (
	// ScriptClassPubKeyHash locks an output to a 20-byte public key hash.
	ScriptClassPubKeyHash ScriptClass = 0x01
	// ScriptClassData marks a provably unspendable data-carrier output.
	ScriptClassData ScriptClass = 0x02
)

// String returns a human-readable name for the script class.
func (sc ScriptClass) String() string {
	switch sc {
	case ScriptClassPubKeyHash:
		return "pubkeyhash"
	case ScriptClassData:
		return "data"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(sc))
	}
}

// ScriptPublicKey is a versioned locking script.
type ScriptPublicKey struct {
	Version uint16
	Script  []byte
}

// scriptPublicKeyJSON is the wire shape: {"version": 0, "scriptPublicKey": "<hex>"}.
type scriptPublicKeyJSON struct {
	Version uint16 `json:"version"`
	Script  string `json:"scriptPublicKey"`
}

// MarshalJSON encodes the script with hex payload.
func (s ScriptPublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(scriptPublicKeyJSON{
		Version: s.Version,
		Script:  hex.EncodeToString(s.Script),
	})
}

// UnmarshalJSON decodes the hex script payload.
func (s *ScriptPublicKey) UnmarshalJSON(data []byte) error {
	var j scriptPublicKeyJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	raw, err := hex.DecodeString(j.Script)
	if err != nil {
		return fmt.Errorf("invalid script hex: %w", err)
	}
	s.Version = j.Version
	s.Script = raw
	return nil
}

// Equal reports whether two scripts are identical.
func (s ScriptPublicKey) Equal(other ScriptPublicKey) bool {
	return s.Version == other.Version && bytes.Equal(s.Script, other.Script)
}

// PayToAddress builds the version-0 locking script for an address:
// one class byte followed by the 20-byte public key hash.
func PayToAddress(addr Address) ScriptPublicKey {
	script := make([]byte, 1+AddressSize)
	script[0] = byte(ScriptClassPubKeyHash)
	copy(script[1:], addr[:])
	return ScriptPublicKey{Version: 0, Script: script}
}

// AddressFromScript extracts the address from a pay-to-pubkey-hash script.
func AddressFromScript(spk ScriptPublicKey) (Address, error) {
	if len(spk.Script) != 1+AddressSize || ScriptClass(spk.Script[0]) != ScriptClassPubKeyHash {
		return Address{}, fmt.Errorf("not a pay-to-pubkey-hash script")
	}
	var a Address
	copy(a[:], spk.Script[1:])
	return a, nil
}
