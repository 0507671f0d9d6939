package plic

import "testing"

func TestClaimReturnsLowestPendingEnabled(t *testing.T) {
	p := New()
	p.SetPending(10)
	p.SetPending(3)
	if err := p.Store(SEnableOffset, (1<<10)|(1<<3), 32); err != nil {
		t.Fatal(err)
	}
	id := p.Claim()
	if id != 3 {
		t.Fatalf("claim = %d, want lowest id 3", id)
	}
	id2 := p.Claim()
	if id2 != 10 {
		t.Fatalf("second claim = %d, want 10", id2)
	}
	if id3 := p.Claim(); id3 != 0 {
		t.Fatalf("third claim = %d, want 0 (nothing left pending)", id3)
	}
}

func TestPendingWithoutEnableNotClaimed(t *testing.T) {
	p := New()
	p.SetPending(5)
	if id := p.Claim(); id != 0 {
		t.Fatalf("claim = %d, want 0 for a disabled source", id)
	}
}

func TestLoadSClaimOffsetClaims(t *testing.T) {
	p := New()
	p.SetPending(1)
	p.Store(SEnableOffset, 1<<1, 32)
	v, err := p.Load(SClaimOffset, 32)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("load sclaim = %d, want 1", v)
	}
}

func TestSixtyFourBitAccessRejected(t *testing.T) {
	p := New()
	if _, err := p.Load(PendingOffset, 64); err == nil {
		t.Fatal("expected access fault for non-32-bit load")
	}
}
