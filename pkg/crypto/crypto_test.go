package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestDomainHashSeparation(t *testing.T) {
	data := []byte("payload")

	idHash := DomainHash(DomainTransactionID, data)
	signHash := DomainHash(DomainTransactionSign, data)
	if idHash == signHash {
		t.Error("different domains produced the same hash")
	}

	again := DomainHash(DomainTransactionID, data)
	if idHash != again {
		t.Error("domain hash is not deterministic")
	}

	if DomainHash(DomainTransactionID, []byte("other")) == idHash {
		t.Error("different data produced the same hash")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	valid := make([]byte, 32)
	valid[31] = 1
	if _, err := PrivateKeyFromBytes(valid); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}

	if _, err := PrivateKeyFromBytes(make([]byte, 31)); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("short key error = %v, want ErrInvalidPrivateKey", err)
	}
	if _, err := PrivateKeyFromBytes(make([]byte, 32)); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("zero key error = %v, want ErrInvalidPrivateKey", err)
	}
}

func TestSignAndVerify(t *testing.T) {
	keyBytes := make([]byte, 32)
	for i := range keyBytes {
		keyBytes[i] = byte(i + 1)
	}
	key, err := PrivateKeyFromBytes(keyBytes)
	if err != nil {
		t.Fatal(err)
	}

	hash := Hash([]byte("message"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	pub := key.PublicKey()
	if len(pub) != 33 {
		t.Errorf("public key length = %d, want 33 (compressed)", len(pub))
	}
	if !VerifySignature(hash[:], sig, pub) {
		t.Error("signature does not verify")
	}

	wrongHash := Hash([]byte("other message"))
	if VerifySignature(wrongHash[:], sig, pub) {
		t.Error("signature verified against the wrong hash")
	}

	// Deterministic nonces: identical key and hash, identical bytes.
	again, err := key.Sign(hash[:])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sig, again) {
		t.Error("signing is not deterministic")
	}

	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("Sign accepted a non-32-byte hash")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := AddressFromPubKey(key.PublicKey())
	if addr.IsZero() {
		t.Error("derived address is zero")
	}
	if AddressFromPubKey(key.PublicKey()) != addr {
		t.Error("address derivation is not deterministic")
	}

	other, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	if AddressFromPubKey(other.PublicKey()) == addr {
		t.Error("different keys derived the same address")
	}
}
