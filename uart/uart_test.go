package uart

import "testing"

func TestOfferSetsRxAndReadClears(t *testing.T) {
	u := New()
	if !u.Offer('A') {
		t.Fatal("expected offer to succeed on an empty RHR")
	}
	if u.Offer('B') {
		t.Fatal("expected offer to fail while RHR is still full")
	}
	v, err := u.Load(RHROffset, 8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 'A' {
		t.Fatalf("RHR = %q, want 'A'", v)
	}
	if !u.Offer('B') {
		t.Fatal("expected offer to succeed once RHR was read")
	}
}

func TestThrQueuesForHost(t *testing.T) {
	u := New()
	if _, ok := u.TakeOutput(); ok {
		t.Fatal("fresh uart should have nothing queued")
	}
	if err := u.Store(THROffset, 'Z', 8); err != nil {
		t.Fatal(err)
	}
	b, ok := u.TakeOutput()
	if !ok || b != 'Z' {
		t.Fatalf("TakeOutput = (%q,%v), want ('Z',true)", b, ok)
	}
	if _, ok := u.TakeOutput(); ok {
		t.Fatal("TakeOutput should not repeat the same byte")
	}
}

func TestLSRTxAlwaysSet(t *testing.T) {
	u := New()
	v, _ := u.Load(LSROffset, 8)
	if uint8(v)&LSRTxMask == 0 {
		t.Fatal("LSR.TX should be set immediately after reset")
	}
}

func TestSixteenBitAccessRejected(t *testing.T) {
	u := New()
	if _, err := u.Load(RHROffset, 16); err == nil {
		t.Fatal("expected access fault for non-8-bit load")
	}
}

func TestResetClearsNewTx(t *testing.T) {
	u := New()
	u.Store(THROffset, 'X', 8)
	u.Reset()
	if _, ok := u.TakeOutput(); ok {
		t.Fatal("reset should clear a pending transmit byte")
	}
}
