package memory

import "testing"

func TestStoreLoadRoundTrip(t *testing.T) {
	r := New(4096)
	cases := []struct {
		addr uint64
		val  uint64
		size uint
	}{
		{0, 0xff, 8},
		{8, 0xbeef, 16},
		{16, 0xdeadbeef, 32},
		{24, 0x0123456789abcdef, 64},
	}
	for _, c := range cases {
		if err := r.Store(c.addr, c.val, c.size); err != nil {
			t.Fatalf("store(%d,%d,%d): %v", c.addr, c.val, c.size, err)
		}
		got, err := r.Load(c.addr, c.size)
		if err != nil {
			t.Fatalf("load(%d,%d): %v", c.addr, c.size, err)
		}
		mask := uint64(1)<<c.size - 1
		if c.size == 64 {
			mask = ^uint64(0)
		}
		if got != c.val&mask {
			t.Fatalf("load(%d,%d) = %#x, want %#x", c.addr, c.size, got, c.val&mask)
		}
	}
}

func TestLoadOutOfRangeFaults(t *testing.T) {
	r := New(16)
	if _, err := r.Load(12, 64); err == nil {
		t.Fatal("expected access fault for out-of-range load")
	}
}

func TestStoreOutOfRangeFaults(t *testing.T) {
	r := New(16)
	if err := r.Store(12, 0, 64); err == nil {
		t.Fatal("expected access fault for out-of-range store")
	}
}

func TestLittleEndian(t *testing.T) {
	r := New(8)
	if err := r.Store(0, 0x0102030405060708, 64); err != nil {
		t.Fatal(err)
	}
	b, _ := r.Load(0, 8)
	if b != 0x08 {
		t.Fatalf("low byte = %#x, want 0x08", b)
	}
}

func TestLoadImageTooLarge(t *testing.T) {
	r := New(4)
	if err := r.LoadImage(make([]byte, 5)); err == nil {
		t.Fatal("expected error loading oversized image")
	}
}

func TestLoadImagePlacesAtStart(t *testing.T) {
	r := New(4)
	if err := r.LoadImage([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	v, _ := r.Load(0, 32)
	if v != 0x04030201 {
		t.Fatalf("loaded image = %#x, want 0x04030201", v)
	}
}

func TestResetClears(t *testing.T) {
	r := New(4)
	r.Store(0, 0xff, 8)
	r.Reset()
	v, _ := r.Load(0, 8)
	if v != 0 {
		t.Fatalf("after reset byte = %#x, want 0", v)
	}
}
