package bus

import "testing"

type fakeDevice struct {
	mem    map[uint64]uint64
	resets int
}

func newFakeDevice() *fakeDevice { return &fakeDevice{mem: map[uint64]uint64{}} }

func (f *fakeDevice) Load(offset uint64, sizeBits uint) (uint64, error) {
	return f.mem[offset], nil
}

func (f *fakeDevice) Store(offset uint64, val uint64, sizeBits uint) error {
	f.mem[offset] = val
	return nil
}

func (f *fakeDevice) Reset() { f.resets++ }

func TestBusRoutesToRegion(t *testing.T) {
	ram := newFakeDevice()
	clint := newFakeDevice()
	plic := newFakeDevice()
	uart := newFakeDevice()
	b := New(ram, 0x1000, clint, plic, uart)

	if err := b.Store(RAMBase+4, 0x42, 32); err != nil {
		t.Fatal(err)
	}
	if ram.mem[4] != 0x42 {
		t.Fatalf("ram region-relative offset wrong: %v", ram.mem)
	}

	if err := b.Store(ClintBase, 7, 64); err != nil {
		t.Fatal(err)
	}
	if clint.mem[0] != 7 {
		t.Fatalf("clint region-relative offset wrong: %v", clint.mem)
	}
}

func TestBusOutOfRangeFaults(t *testing.T) {
	b := New(newFakeDevice(), 0x1000, newFakeDevice(), newFakeDevice(), newFakeDevice())
	if _, err := b.Load(0x1234, 32); err == nil {
		t.Fatal("expected access fault for unmapped address")
	}
	if err := b.Store(0x1234, 0, 32); err == nil {
		t.Fatal("expected access fault for unmapped address")
	}
}

func TestBusResetPropagates(t *testing.T) {
	ram := newFakeDevice()
	clint := newFakeDevice()
	plic := newFakeDevice()
	uart := newFakeDevice()
	b := New(ram, 0x1000, clint, plic, uart)
	b.Reset()
	if ram.resets != 1 || clint.resets != 1 || plic.resets != 1 || uart.resets != 1 {
		t.Fatal("expected every region's device to be reset exactly once")
	}
}

func TestRAMRegionBoundsAreExclusiveAtEnd(t *testing.T) {
	b := New(newFakeDevice(), 0x10, newFakeDevice(), newFakeDevice(), newFakeDevice())
	if _, err := b.Load(RAMBase+0x10, 8); err == nil {
		t.Fatal("expected fault exactly at the exclusive region end")
	}
	if _, err := b.Load(RAMBase+0xf, 8); err != nil {
		t.Fatal("expected last in-range byte to be accessible")
	}
}
