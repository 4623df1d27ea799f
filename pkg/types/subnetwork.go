package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SubnetworkIDSize is the length of a subnetwork identifier in bytes.
const SubnetworkIDSize = 20

// SubnetworkID classifies a transaction. The native subnetwork carries
// plain value transfers; the data subnetwork is the only one that
// permits an arbitrary payload.
type SubnetworkID [SubnetworkIDSize]byte

// Reserved subnetwork identifiers.
var (
	// SubnetworkIDNative is the default subnetwork (all zeros). Payload must be empty.
	SubnetworkIDNative = SubnetworkID{}
	// SubnetworkIDCoinbase marks coinbase transactions.
	SubnetworkIDCoinbase = SubnetworkID{0x01}
	// SubnetworkIDData permits an arbitrary payload.
	SubnetworkIDData = SubnetworkID{0x02}
)

// IsNative returns true for the default value-transfer subnetwork.
func (s SubnetworkID) IsNative() bool {
	return s == SubnetworkIDNative
}

// String returns the hex-encoded subnetwork ID.
func (s SubnetworkID) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalJSON encodes the subnetwork ID as a 40-character hex string.
func (s SubnetworkID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a hex string into a subnetwork ID.
func (s *SubnetworkID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = SubnetworkID{}
		return nil
	}
	decoded, err := hex.DecodeString(str)
	if err != nil {
		return fmt.Errorf("invalid subnetwork hex: %w", err)
	}
	if len(decoded) != SubnetworkIDSize {
		return fmt.Errorf("subnetwork ID must be %d bytes, got %d", SubnetworkIDSize, len(decoded))
	}
	copy(s[:], decoded)
	return nil
}
