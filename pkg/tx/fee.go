package tx

import (
	"fmt"

	"github.com/hoosat-tools/htnforge/pkg/types"
)

// Mass accounting constants. These mirror the consensus node's fee
// policy exactly; any divergence makes locally priced transactions
// under- or over-pay relay fees.
const (
	// EstimatedBytesPerInput is the serialized size charged per input.
	EstimatedBytesPerInput = 181
	// EstimatedBytesPerOutput is the serialized size charged per output.
	EstimatedBytesPerOutput = 34
	// ScriptPubKeyBytesPerOutput is the locking-script size charged per output.
	ScriptPubKeyBytesPerOutput = 34
	// MassPerTxByte weights plain transaction bytes.
	MassPerTxByte = 1
	// MassPerScriptPubKeyByte weights locking-script bytes.
	MassPerScriptPubKeyByte = 10
	// MassPerSigOp weights each signature operation.
	MassPerSigOp = 1000
	// MinimumRelayFeeMultiplier converts mass to the minimum relay fee.
	MinimumRelayFeeMultiplier = 1
)

// ComputeMass returns the consensus mass of a transaction with the given
// shape. Mass is the fee-pricing resource metric: size, script bytes,
// signature operations and payload all contribute. Integer arithmetic
// only; the same shape always yields the same mass.
func ComputeMass(numInputs, numOutputs, payloadSize int) (uint64, error) {
	if numInputs < 1 {
		return 0, fmt.Errorf("transaction must have at least one input, got %d", numInputs)
	}
	if numOutputs < 1 {
		return 0, fmt.Errorf("transaction must have at least one output, got %d", numOutputs)
	}
	if payloadSize < 0 {
		return 0, fmt.Errorf("negative payload size %d", payloadSize)
	}

	txSize := uint64(numInputs)*EstimatedBytesPerInput + uint64(numOutputs)*EstimatedBytesPerOutput
	scriptSize := uint64(numOutputs) * ScriptPubKeyBytesPerOutput

	mass := txSize*MassPerTxByte +
		scriptSize*MassPerScriptPubKeyByte +
		uint64(numInputs)*MassPerSigOp +
		uint64(payloadSize)*MassPerTxByte
	return mass, nil
}

// MassForTransaction returns the consensus mass of a built transaction.
func MassForTransaction(t *Transaction) (uint64, error) {
	return ComputeMass(len(t.Inputs), len(t.Outputs), len(t.Payload))
}

// MinimumFee returns the minimum relay fee in sompi for a transaction
// with the given shape. Fee = mass * MinimumRelayFeeMultiplier.
func MinimumFee(numInputs, numOutputs, payloadSize int) (types.Amount, error) {
	mass, err := ComputeMass(numInputs, numOutputs, payloadSize)
	if err != nil {
		return 0, err
	}
	return types.Amount(mass * MinimumRelayFeeMultiplier), nil
}
