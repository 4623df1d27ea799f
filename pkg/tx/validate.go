package tx

import (
	"errors"
	"fmt"
)

// Spam-protection and dust limits enforced at construction time.
const (
	// MaxRecipientOutputs caps the recipient outputs per transaction.
	MaxRecipientOutputs = 2
	// MaxTotalOutputs caps recipients plus change.
	MaxTotalOutputs = 3
	// DustThreshold is the smallest change amount worth an output;
	// anything below is folded into the fee.
	DustThreshold = 1000
)

// Construction and validation errors.
var (
	ErrNoInputs               = errors.New("transaction has no inputs")
	ErrNoOutputs              = errors.New("transaction has no outputs")
	ErrTooManyRecipients      = errors.New("too many recipient outputs")
	ErrTooManyOutputs         = errors.New("too many total outputs")
	ErrFeeNotSet              = errors.New("fee not set")
	ErrPayloadNotAllowed      = errors.New("payload not allowed on the native subnetwork")
	ErrInsufficientInputValue = errors.New("inputs do not cover outputs plus fee")
	ErrSigningKeyMissing      = errors.New("no signing key for input")
)

// CheckTransactionSanity verifies structural rules on a finished
// transaction: input/output presence, output caps and the
// payload/subnetwork pairing. Balance rules need UTXO amounts and are
// checked by the builder instead.
func CheckTransactionSanity(t *Transaction) error {
	if len(t.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(t.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(t.Outputs) > MaxTotalOutputs {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOutputs, len(t.Outputs), MaxTotalOutputs)
	}
	if len(t.Payload) > 0 && t.SubnetworkID.IsNative() {
		return ErrPayloadNotAllowed
	}
	if _, err := t.TotalOutputAmount(); err != nil {
		return err
	}
	return nil
}
