package tx

import (
	"fmt"

	"github.com/hoosat-tools/htnforge/pkg/crypto"
	"github.com/hoosat-tools/htnforge/pkg/types"
)

// BuilderState tracks the builder's position in its lifecycle.
type BuilderState int

const (
	// StateEmpty is a fresh or cleared builder.
	StateEmpty BuilderState = iota
	// StateAccumulating has at least one mutation and is open for more.
	StateAccumulating
	// StateValidated passed Validate and is ready to sign or build.
	StateValidated
	// StateSigned produced a signed transaction.
	StateSigned
)

// String returns a human-readable state name.
func (s BuilderState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateValidated:
		return "validated"
	case StateSigned:
		return "signed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// builderInput pairs a spent UTXO with its optional signing key.
type builderInput struct {
	prev PrevOutput
	key  *crypto.PrivateKey
}

// Builder accumulates inputs and outputs into a transaction. A builder
// is owned by a single goroutine; it has no internal locking. Any
// mutation after Validate or Sign drops the builder back to the
// accumulating state and invalidates prior signatures.
type Builder struct {
	state        BuilderState
	inputs       []builderInput
	outputs      []*Output
	recipients   int
	hasChange    bool
	fee          types.Amount
	feeSet       bool
	lockTime     uint64
	subnetworkID types.SubnetworkID
	gas          uint64
	payload      []byte
	absorbed     types.Amount
	absorbedSet  bool
}

// NewBuilder creates an empty builder on the native subnetwork.
func NewBuilder() *Builder {
	return &Builder{subnetworkID: types.SubnetworkIDNative}
}

// State returns the builder's current lifecycle state.
func (b *Builder) State() BuilderState {
	return b.state
}

// touch records a mutation: a validated or signed builder falls back to
// accumulating and must be re-validated.
func (b *Builder) touch() {
	if b.state == StateValidated || b.state == StateSigned {
		b.state = StateAccumulating
	}
	if b.state == StateEmpty {
		b.state = StateAccumulating
	}
}

// AddInput appends an input spending prev. The signing key may be
// supplied here or deferred to Sign.
func (b *Builder) AddInput(prev PrevOutput, key *crypto.PrivateKey) *Builder {
	b.touch()
	b.inputs = append(b.inputs, builderInput{prev: prev, key: key})
	return b
}

// AddOutput appends a recipient output paying amount to addr.
// At most MaxRecipientOutputs recipients are accepted.
func (b *Builder) AddOutput(addr types.Address, amount types.Amount) error {
	if amount == 0 {
		return fmt.Errorf("%w: output amount must be positive", types.ErrInvalidAmount)
	}
	if addr.IsZero() {
		return fmt.Errorf("%w: zero address", types.ErrInvalidAddress)
	}
	if b.recipients+1 > MaxRecipientOutputs {
		return fmt.Errorf("%w: limit is %d", ErrTooManyRecipients, MaxRecipientOutputs)
	}
	b.touch()
	b.outputs = append(b.outputs, &Output{
		Amount:          amount,
		ScriptPublicKey: types.PayToAddress(addr),
	})
	b.recipients++
	return nil
}

// SetFee sets the transaction fee in sompi.
func (b *Builder) SetFee(fee types.Amount) *Builder {
	b.touch()
	b.fee = fee
	b.feeSet = true
	return b
}

// SetLockTime sets the transaction lock time.
func (b *Builder) SetLockTime(lockTime uint64) *Builder {
	b.touch()
	b.lockTime = lockTime
	return b
}

// SetSubnetworkID sets the transaction's subnetwork.
func (b *Builder) SetSubnetworkID(id types.SubnetworkID) *Builder {
	b.touch()
	b.subnetworkID = id
	return b
}

// SetGas sets the gas value (only meaningful off the native subnetwork).
func (b *Builder) SetGas(gas uint64) *Builder {
	b.touch()
	b.gas = gas
	return b
}

// SetPayload attaches an arbitrary payload. A non-empty payload is only
// valid on the data-carrying subnetwork; set the subnetwork first.
func (b *Builder) SetPayload(payload []byte) error {
	if len(payload) > 0 && b.subnetworkID.IsNative() {
		return ErrPayloadNotAllowed
	}
	b.touch()
	b.payload = payload
	return nil
}

// Fee returns the effective fee, including any absorbed dust change.
func (b *Builder) Fee() types.Amount {
	return b.fee
}

// ChangeAbsorbed reports the dust change folded into the fee by
// AddChangeOutput, if any.
func (b *Builder) ChangeAbsorbed() (types.Amount, bool) {
	return b.absorbed, b.absorbedSet
}

// totalInputAmount sums the spent UTXO amounts with overflow checking.
func (b *Builder) totalInputAmount() (types.Amount, error) {
	var total types.Amount
	var err error
	for _, in := range b.inputs {
		total, err = types.AddAmounts(total, in.prev.Amount)
		if err != nil {
			return 0, fmt.Errorf("input amounts: %w", err)
		}
	}
	return total, nil
}

// totalOutputAmount sums the output amounts with overflow checking.
func (b *Builder) totalOutputAmount() (types.Amount, error) {
	var total types.Amount
	var err error
	for _, out := range b.outputs {
		total, err = types.AddAmounts(total, out.Amount)
		if err != nil {
			return 0, fmt.Errorf("output amounts: %w", err)
		}
	}
	return total, nil
}

// AddChangeOutput computes change = inputs - outputs - fee and appends
// at most one change output paying addr. Change below DustThreshold is
// folded into the fee instead of creating an output; the absorbed
// amount is reported by ChangeAbsorbed.
func (b *Builder) AddChangeOutput(addr types.Address) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: zero change address", types.ErrInvalidAddress)
	}
	if !b.feeSet {
		return ErrFeeNotSet
	}
	if b.hasChange {
		return fmt.Errorf("change output already added")
	}

	totalIn, err := b.totalInputAmount()
	if err != nil {
		return err
	}
	totalOut, err := b.totalOutputAmount()
	if err != nil {
		return err
	}
	spend, err := types.AddAmounts(totalOut, b.fee)
	if err != nil {
		return err
	}
	if totalIn < spend {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientInputValue, totalIn, spend)
	}

	change := totalIn - spend
	if change < DustThreshold {
		// Dust: the miner keeps it. Not an error.
		b.touch()
		b.fee += change
		b.absorbed = change
		b.absorbedSet = true
		return nil
	}

	if len(b.outputs)+1 > MaxTotalOutputs {
		return fmt.Errorf("%w: limit is %d", ErrTooManyOutputs, MaxTotalOutputs)
	}
	b.touch()
	b.outputs = append(b.outputs, &Output{
		Amount:          change,
		ScriptPublicKey: types.PayToAddress(addr),
	})
	b.hasChange = true
	return nil
}

// Validate checks the accumulated state: at least one input and output,
// a positive fee, output caps, the payload/subnetwork pairing, and that
// inputs cover outputs plus fee. On failure the builder stays in the
// accumulating state so the caller can fix and retry.
func (b *Builder) Validate() error {
	if len(b.inputs) == 0 {
		return ErrNoInputs
	}
	if len(b.outputs) == 0 {
		return ErrNoOutputs
	}
	if len(b.outputs) > MaxTotalOutputs {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOutputs, len(b.outputs), MaxTotalOutputs)
	}
	if !b.feeSet || b.fee == 0 {
		return fmt.Errorf("%w: fee must be set and positive", ErrFeeNotSet)
	}
	if len(b.payload) > 0 && b.subnetworkID.IsNative() {
		return ErrPayloadNotAllowed
	}

	totalIn, err := b.totalInputAmount()
	if err != nil {
		return err
	}
	totalOut, err := b.totalOutputAmount()
	if err != nil {
		return err
	}
	spend, err := types.AddAmounts(totalOut, b.fee)
	if err != nil {
		return err
	}
	if totalIn < spend {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientInputValue, totalIn, spend)
	}

	if b.state != StateSigned {
		b.state = StateValidated
	}
	return nil
}

// draft materializes the accumulated state into a transaction with
// empty signature scripts.
func (b *Builder) draft() *Transaction {
	t := &Transaction{
		Version:      0,
		Inputs:       make([]*Input, len(b.inputs)),
		Outputs:      make([]*Output, len(b.outputs)),
		LockTime:     b.lockTime,
		SubnetworkID: b.subnetworkID,
		Gas:          b.gas,
		Payload:      b.payload,
	}
	for i, in := range b.inputs {
		t.Inputs[i] = &Input{
			PreviousOutpoint: in.prev.Outpoint,
			Sequence:         DefaultSequence,
			SigOpCount:       1,
		}
	}
	for i, out := range b.outputs {
		t.Outputs[i] = &Output{Amount: out.Amount, ScriptPublicKey: out.ScriptPublicKey}
	}
	return t
}

// Build validates (if needed) and returns the unsigned transaction, for
// flows where signing happens externally.
func (b *Builder) Build() (*Transaction, error) {
	if b.state != StateValidated && b.state != StateSigned {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}
	return b.draft(), nil
}

// Sign validates (if needed) and signs every input. The per-input key
// supplied to AddInput takes precedence; globalKey covers the rest. A
// nil resolved key fails with ErrSigningKeyMissing. Signing is
// deterministic: an unmodified builder re-signs to byte-identical
// transactions.
func (b *Builder) Sign(globalKey *crypto.PrivateKey) (*Transaction, error) {
	if b.state != StateValidated && b.state != StateSigned {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	// Resolve all keys before touching any signature script.
	keys := make([]*crypto.PrivateKey, len(b.inputs))
	for i, in := range b.inputs {
		key := in.key
		if key == nil {
			key = globalKey
		}
		if key == nil {
			return nil, fmt.Errorf("%w: input %d", ErrSigningKeyMissing, i)
		}
		keys[i] = key
	}

	t := b.draft()
	for i := range t.Inputs {
		script, err := SignInput(t, i, keys[i], b.inputs[i].prev)
		if err != nil {
			return nil, err
		}
		t.Inputs[i].SignatureScript = script
	}

	b.state = StateSigned
	return t, nil
}

// Clear resets the builder to the empty state for reuse.
func (b *Builder) Clear() {
	*b = Builder{subnetworkID: types.SubnetworkIDNative}
}
