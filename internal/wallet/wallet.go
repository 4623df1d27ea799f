// Package wallet coordinates UTXO refresh, selection, construction,
// signing and submission against a node.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hoosat-tools/htnforge/internal/feerate"
	"github.com/hoosat-tools/htnforge/internal/log"
	"github.com/hoosat-tools/htnforge/internal/store"
	"github.com/hoosat-tools/htnforge/pkg/crypto"
	"github.com/hoosat-tools/htnforge/pkg/tx"
	"github.com/hoosat-tools/htnforge/pkg/types"
	"github.com/hoosat-tools/htnforge/pkg/utxo"
)

// NodeAPI is the node surface the wallet needs. Implemented by
// *nodeclient.Client; faked in tests.
type NodeAPI interface {
	UTXOsByAddress(ctx context.Context, addr types.Address) ([]utxo.UTXO, error)
	VirtualDAAScore(ctx context.Context) (uint64, error)
	SubmitTransaction(ctx context.Context, t *tx.Transaction) (types.TransactionID, error)
}

// Wallet ties the engine's pieces into balance and spend flows. Each
// method call is owned by a single goroutine; the wallet itself holds
// no locks beyond the store's.
type Wallet struct {
	node             NodeAPI
	cache            *store.UTXOCache
	estimator        *feerate.Estimator
	coinbaseMaturity uint64
}

// New creates a wallet. maturity == 0 selects the default coinbase maturity.
func New(node NodeAPI, cache *store.UTXOCache, estimator *feerate.Estimator, maturity uint64) *Wallet {
	if maturity == 0 {
		maturity = utxo.DefaultCoinbaseMaturity
	}
	return &Wallet{
		node:             node,
		cache:            cache,
		estimator:        estimator,
		coinbaseMaturity: maturity,
	}
}

// Balance is the spendable/pending split for one address.
type Balance struct {
	Available types.Amount // Mature, not locally spent.
	Pending   types.Amount // Coinbase outputs still maturing.
}

// Refresh pulls the current DAA score and UTXO set for addr from the
// node, persists the snapshot, and returns the UTXOs not consumed by a
// locally-built transaction.
func (w *Wallet) Refresh(ctx context.Context, addr types.Address) ([]utxo.UTXO, uint64, error) {
	daaScore, err := w.node.VirtualDAAScore(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("refresh %s: %w", addr, err)
	}
	utxos, err := w.node.UTXOsByAddress(ctx, addr)
	if err != nil {
		return nil, 0, fmt.Errorf("refresh %s: %w", addr, err)
	}
	if err := w.cache.SaveSnapshot(addr, daaScore, utxos); err != nil {
		return nil, 0, err
	}
	unspent, err := w.cache.FilterUnspent(utxos)
	if err != nil {
		return nil, 0, err
	}
	log.Wallet.Debug().
		Str("address", addr.String()).
		Int("utxos", len(utxos)).
		Int("unspent", len(unspent)).
		Uint64("daa_score", daaScore).
		Msg("refreshed utxo view")
	return unspent, daaScore, nil
}

// CachedUTXOs returns the last persisted view for addr without touching
// the network. Falls back cleanly when no snapshot exists.
func (w *Wallet) CachedUTXOs(addr types.Address) ([]utxo.UTXO, uint64, error) {
	snap, err := w.cache.Snapshot(addr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	unspent, err := w.cache.FilterUnspent(snap.UTXOs)
	if err != nil {
		return nil, 0, err
	}
	return unspent, snap.DAAScore, nil
}

// GetBalance refreshes addr and splits its value into available and
// pending (immature coinbase) amounts.
func (w *Wallet) GetBalance(ctx context.Context, addr types.Address) (*Balance, error) {
	unspent, daaScore, err := w.Refresh(ctx, addr)
	if err != nil {
		return nil, err
	}
	mature, immature := utxo.Separate(unspent, daaScore, w.coinbaseMaturity)
	available, err := utxo.Total(mature)
	if err != nil {
		return nil, err
	}
	pending, err := utxo.Total(immature)
	if err != nil {
		return nil, err
	}
	return &Balance{Available: available, Pending: pending}, nil
}

// SendRequest describes one spend.
type SendRequest struct {
	From     types.Address
	To       types.Address
	Amount   types.Amount
	Key      *crypto.PrivateKey // Signs every selected input.
	Priority feerate.Priority
	Policy   utxo.Policy
	// ChangeTo receives change; zero value means change returns to From.
	ChangeTo types.Address
}

// Send selects UTXOs, builds, signs and submits a payment. The consumed
// outpoints are marked spent locally so a follow-up Send cannot reuse
// them before the node observes the transaction.
func (w *Wallet) Send(ctx context.Context, req SendRequest) (*tx.Transaction, types.TransactionID, error) {
	if req.Key == nil {
		return nil, types.TransactionID{}, tx.ErrSigningKeyMissing
	}
	changeAddr := req.ChangeTo
	if changeAddr.IsZero() {
		changeAddr = req.From
	}

	available, daaScore, err := w.Refresh(ctx, req.From)
	if err != nil {
		return nil, types.TransactionID{}, err
	}

	selection, fee, err := w.selectForSpend(ctx, available, daaScore, req.Amount, req.Priority, req.Policy)
	if err != nil {
		return nil, types.TransactionID{}, err
	}

	builder := tx.NewBuilder()
	for _, u := range selection.UTXOs {
		builder.AddInput(u.PrevOutput(), nil)
	}
	if err := builder.AddOutput(req.To, req.Amount); err != nil {
		return nil, types.TransactionID{}, err
	}
	builder.SetFee(fee)
	if err := builder.AddChangeOutput(changeAddr); err != nil {
		return nil, types.TransactionID{}, err
	}
	if absorbed, ok := builder.ChangeAbsorbed(); ok {
		log.Wallet.Info().
			Uint64("absorbed", uint64(absorbed)).
			Uint64("effective_fee", uint64(builder.Fee())).
			Msg("dust change absorbed into fee")
	}

	signed, err := builder.Sign(req.Key)
	if err != nil {
		return nil, types.TransactionID{}, err
	}

	txID, err := w.node.SubmitTransaction(ctx, signed)
	if err != nil {
		return nil, types.TransactionID{}, err
	}

	spent := make([]types.Outpoint, len(selection.UTXOs))
	for i, u := range selection.UTXOs {
		spent[i] = u.Outpoint
	}
	if err := w.cache.MarkSpent(spent...); err != nil {
		return nil, types.TransactionID{}, err
	}

	log.Wallet.Info().
		Str("txid", txID.String()).
		Uint64("amount", uint64(req.Amount)).
		Uint64("fee", uint64(builder.Fee())).
		Int("inputs", len(selection.UTXOs)).
		Msg("transaction submitted")
	return signed, txID, nil
}

// EstimateSendFee prices a spend of amount from addr at the given tier
// without building or submitting anything.
func (w *Wallet) EstimateSendFee(ctx context.Context, addr types.Address, amount types.Amount, priority feerate.Priority) (*feerate.Estimate, error) {
	available, daaScore, err := w.Refresh(ctx, addr)
	if err != nil {
		return nil, err
	}
	selection, _, err := w.selectForSpend(ctx, available, daaScore, amount, priority, utxo.PolicyLargestFirst)
	if err != nil {
		return nil, err
	}
	return w.estimator.EstimateFee(ctx, priority, len(selection.UTXOs), 2)
}

// selectForSpend resolves the market fee rate for the tier and runs
// coin selection with it, returning the selection and the total fee for
// the resulting shape (spend output plus change).
func (w *Wallet) selectForSpend(ctx context.Context, available []utxo.UTXO, daaScore uint64, amount types.Amount, priority feerate.Priority, policy utxo.Policy) (*utxo.Selection, types.Amount, error) {
	recs, err := w.estimator.Recommendations(ctx, false)
	if err != nil {
		return nil, 0, err
	}
	rate := uint64(math.Ceil(recs.ForPriority(priority).FeeRate))
	if rate < tx.MinimumRelayFeeMultiplier {
		rate = tx.MinimumRelayFeeMultiplier
	}

	selection, err := utxo.Select(available, utxo.Options{
		Target:           amount,
		FeeRate:          rate,
		NumOutputs:       2,
		DAAScore:         daaScore,
		CoinbaseMaturity: w.coinbaseMaturity,
		Policy:           policy,
	})
	if err != nil {
		return nil, 0, err
	}
	return selection, selection.Fee, nil
}
