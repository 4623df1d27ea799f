package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hoosat-tools/htnforge/internal/log"
	"github.com/hoosat-tools/htnforge/pkg/types"
	"github.com/hoosat-tools/htnforge/pkg/utxo"
)

// Key prefixes. Snapshots and spent marks share one DB.
var (
	prefixSnapshot = []byte("u/")
	prefixSpent    = []byte("s/")
)

// Snapshot is the persisted UTXO view for one address.
type Snapshot struct {
	DAAScore  uint64      `json:"daaScore"`
	FetchedAt time.Time   `json:"fetchedAt"`
	UTXOs     []utxo.UTXO `json:"utxos"`
}

// UTXOCache persists the last-fetched UTXO set per address plus
// locally-spent outpoint marks, so a restarted client does not offer
// already-spent outputs for selection while the node's view lags.
type UTXOCache struct {
	db DB
}

// NewUTXOCache creates a cache over the given database.
func NewUTXOCache(db DB) *UTXOCache {
	return &UTXOCache{db: db}
}

func snapshotKey(addr types.Address) []byte {
	return append(append([]byte{}, prefixSnapshot...), addr[:]...)
}

func spentKey(op types.Outpoint) []byte {
	key := append(append([]byte{}, prefixSpent...), op.TxID[:]...)
	return append(key, byte(op.Index), byte(op.Index>>8), byte(op.Index>>16), byte(op.Index>>24))
}

// SaveSnapshot stores the node-reported UTXO set for addr and clears
// spent marks for outpoints the node stopped reporting for this address
// (their spend is confirmed and the mark is dead weight).
func (c *UTXOCache) SaveSnapshot(addr types.Address, daaScore uint64, utxos []utxo.UTXO) error {
	prev, err := c.Snapshot(addr)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	snap := Snapshot{
		DAAScore:  daaScore,
		FetchedAt: time.Now().UTC(),
		UTXOs:     utxos,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.db.Put(snapshotKey(addr), data); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	if prev == nil {
		return nil
	}
	live := make(map[types.Outpoint]struct{}, len(utxos))
	for _, u := range utxos {
		live[u.Outpoint] = struct{}{}
	}
	cleared := 0
	for _, u := range prev.UTXOs {
		if _, ok := live[u.Outpoint]; ok {
			continue
		}
		if err := c.db.Delete(spentKey(u.Outpoint)); err != nil {
			return err
		}
		cleared++
	}
	if cleared > 0 {
		log.Store.Debug().
			Str("address", addr.String()).
			Int("cleared", cleared).
			Msg("cleared confirmed spent marks")
	}
	return nil
}

// Snapshot loads the stored UTXO view for addr. Returns ErrNotFound if
// the address was never fetched.
func (c *UTXOCache) Snapshot(addr types.Address) (*Snapshot, error) {
	data, err := c.db.Get(snapshotKey(addr))
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// MarkSpent records outpoints consumed by a locally-built transaction.
func (c *UTXOCache) MarkSpent(outpoints ...types.Outpoint) error {
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	for _, op := range outpoints {
		if err := c.db.Put(spentKey(op), stamp); err != nil {
			return fmt.Errorf("mark spent %s: %w", op, err)
		}
	}
	return nil
}

// IsSpent reports whether an outpoint was consumed locally.
func (c *UTXOCache) IsSpent(op types.Outpoint) (bool, error) {
	return c.db.Has(spentKey(op))
}

// FilterUnspent drops UTXOs whose outpoints carry a local spent mark.
func (c *UTXOCache) FilterUnspent(utxos []utxo.UTXO) ([]utxo.UTXO, error) {
	unspent := make([]utxo.UTXO, 0, len(utxos))
	for _, u := range utxos {
		spent, err := c.IsSpent(u.Outpoint)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if !spent {
			unspent = append(unspent, u)
		}
	}
	return unspent, nil
}
