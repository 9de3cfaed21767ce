package integrity

import (
	"testing"

	"github.com/louisbranch/doudizhu/internal/services/game/domain/event"
)

func testEvent() event.Event {
	return event.Event{
		Seq:     1,
		Type:    event.TypeBid,
		Payload: []byte(`{"seat":0,"bid":1}`),
		TS:      "2026-02-01T10:30:00.000Z",
	}
}

func TestSealAndVerify(t *testing.T) {
	sealed, err := Seal(testEvent(), event.GenesisHash, nil, "")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed.PrevHash != event.GenesisHash || len(sealed.Hash) != 64 {
		t.Fatalf("unexpected sealed record %+v", sealed)
	}
	if sealed.Signature != "" {
		t.Fatal("expected unsigned record without keyring")
	}
	if err := Verify(sealed, event.GenesisHash, nil, ""); err != nil {
		t.Fatalf("verify: %v", err)
	}

	tampered := sealed
	tampered.Payload = []byte(`{"seat":0,"bid":2}`)
	if err := Verify(tampered, event.GenesisHash, nil, ""); err == nil {
		t.Fatal("expected tampered payload to fail verification")
	}
	if err := Verify(sealed, sealed.Hash, nil, ""); err == nil {
		t.Fatal("expected wrong predecessor to fail verification")
	}
}

func TestSealSignsWithKeyring(t *testing.T) {
	ring, err := NewKeyring(map[string][]byte{"v1": []byte("secret")}, "v1")
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	sealed, err := Seal(testEvent(), event.GenesisHash, ring, "ledger-1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed.Signature == "" || sealed.KeyID != "v1" {
		t.Fatalf("expected signed record, got %+v", sealed)
	}
	if err := Verify(sealed, event.GenesisHash, ring, "ledger-1"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := Verify(sealed, event.GenesisHash, ring, "ledger-2"); err == nil {
		t.Fatal("expected signature from another ledger to fail")
	}

	unsigned, err := Seal(testEvent(), event.GenesisHash, nil, "")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if err := Verify(unsigned, event.GenesisHash, ring, "ledger-1"); err == nil {
		t.Fatal("expected unsigned record to fail with a keyring")
	}
}
