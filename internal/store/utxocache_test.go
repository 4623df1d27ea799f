package store

import (
	"errors"
	"testing"

	"github.com/hoosat-tools/htnforge/pkg/types"
	"github.com/hoosat-tools/htnforge/pkg/utxo"
)

func cacheAddr(seed byte) types.Address {
	var a types.Address
	a[0] = seed
	return a
}

func cacheUTXO(seed byte, amount types.Amount) utxo.UTXO {
	var txid types.TransactionID
	txid[0] = seed
	return utxo.UTXO{
		Outpoint:        types.Outpoint{TxID: txid, Index: uint32(seed)},
		Amount:          amount,
		ScriptPublicKey: types.PayToAddress(cacheAddr(seed)),
		BlockDAAScore:   100,
	}
}

func TestUTXOCacheSnapshotRoundTrip(t *testing.T) {
	cache := NewUTXOCache(NewMemory())
	addr := cacheAddr(1)
	utxos := []utxo.UTXO{cacheUTXO(1, 100), cacheUTXO(2, 200)}

	if _, err := cache.Snapshot(addr); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fresh cache error = %v, want ErrNotFound", err)
	}

	if err := cache.SaveSnapshot(addr, 5000, utxos); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snap, err := cache.Snapshot(addr)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.DAAScore != 5000 {
		t.Errorf("DAA score = %d, want 5000", snap.DAAScore)
	}
	if len(snap.UTXOs) != 2 {
		t.Fatalf("snapshot holds %d UTXOs, want 2", len(snap.UTXOs))
	}
	if snap.UTXOs[0].Outpoint != utxos[0].Outpoint || snap.UTXOs[1].Amount != 200 {
		t.Error("snapshot round trip corrupted UTXOs")
	}
}

func TestUTXOCacheSpentMarks(t *testing.T) {
	cache := NewUTXOCache(NewMemory())
	utxos := []utxo.UTXO{cacheUTXO(1, 100), cacheUTXO(2, 200), cacheUTXO(3, 300)}

	if err := cache.MarkSpent(utxos[0].Outpoint, utxos[2].Outpoint); err != nil {
		t.Fatalf("MarkSpent: %v", err)
	}

	spent, err := cache.IsSpent(utxos[0].Outpoint)
	if err != nil || !spent {
		t.Errorf("IsSpent(marked) = %v, %v", spent, err)
	}
	spent, err = cache.IsSpent(utxos[1].Outpoint)
	if err != nil || spent {
		t.Errorf("IsSpent(unmarked) = %v, %v", spent, err)
	}

	unspent, err := cache.FilterUnspent(utxos)
	if err != nil {
		t.Fatalf("FilterUnspent: %v", err)
	}
	if len(unspent) != 1 || unspent[0].Amount != 200 {
		t.Errorf("FilterUnspent kept %d, want only the unmarked UTXO", len(unspent))
	}
}

func TestUTXOCacheClearsConfirmedSpends(t *testing.T) {
	cache := NewUTXOCache(NewMemory())
	addr := cacheAddr(1)
	spendable := cacheUTXO(1, 100)
	kept := cacheUTXO(2, 200)

	if err := cache.SaveSnapshot(addr, 5000, []utxo.UTXO{spendable, kept}); err != nil {
		t.Fatal(err)
	}
	if err := cache.MarkSpent(spendable.Outpoint); err != nil {
		t.Fatal(err)
	}

	// The node stops reporting the spent outpoint: the confirmation is
	// visible and the local mark gets cleared.
	if err := cache.SaveSnapshot(addr, 6000, []utxo.UTXO{kept}); err != nil {
		t.Fatal(err)
	}
	spent, err := cache.IsSpent(spendable.Outpoint)
	if err != nil {
		t.Fatal(err)
	}
	if spent {
		t.Error("spent mark survived a snapshot that no longer contains the outpoint")
	}

	// A mark whose outpoint the node still reports stays in place.
	if err := cache.MarkSpent(kept.Outpoint); err != nil {
		t.Fatal(err)
	}
	if err := cache.SaveSnapshot(addr, 7000, []utxo.UTXO{kept}); err != nil {
		t.Fatal(err)
	}
	spent, err = cache.IsSpent(kept.Outpoint)
	if err != nil {
		t.Fatal(err)
	}
	if !spent {
		t.Error("spent mark cleared while the node still reports the outpoint")
	}
}

func TestMemoryDB(t *testing.T) {
	db := NewMemory()

	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := db.Put([]byte("a/1"), []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put([]byte("a/2"), []byte("y")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put([]byte("b/1"), []byte("z")); err != nil {
		t.Fatal(err)
	}

	v, err := db.Get([]byte("a/1"))
	if err != nil || string(v) != "x" {
		t.Errorf("Get = %q, %v", v, err)
	}

	count := 0
	err = db.ForEach([]byte("a/"), func(key, value []byte) error {
		count++
		return nil
	})
	if err != nil || count != 2 {
		t.Errorf("ForEach visited %d keys, want 2 (err %v)", count, err)
	}

	if err := db.Delete([]byte("a/1")); err != nil {
		t.Fatal(err)
	}
	has, err := db.Has([]byte("a/1"))
	if err != nil || has {
		t.Errorf("Has after delete = %v, %v", has, err)
	}
}
