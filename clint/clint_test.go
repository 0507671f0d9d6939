package clint

import "testing"

func TestMTimeCmpTriggersPending(t *testing.T) {
	c := New()
	if c.Pending() {
		t.Fatal("fresh clint should not be pending")
	}
	if err := c.Store(MTimeCmpOffset, 3, 64); err != nil {
		t.Fatal(err)
	}
	if c.Pending() {
		t.Fatal("mtime (0) should not yet reach mtimecmp (3)")
	}
	c.Tick()
	c.Tick()
	if c.Pending() {
		t.Fatal("mtime should still be below mtimecmp after two ticks")
	}
	if !c.Tick() {
		t.Fatal("mtime should reach mtimecmp on the third tick")
	}
}

func TestMTimeCmpZeroNeverPending(t *testing.T) {
	c := New()
	for i := 0; i < 100; i++ {
		if c.Tick() {
			t.Fatal("mtimecmp == 0 must never assert the timer interrupt")
		}
	}
}

func TestThirtyTwoBitAccessRejected(t *testing.T) {
	c := New()
	if _, err := c.Load(MTimeOffset, 32); err == nil {
		t.Fatal("expected access fault for non-64-bit load")
	}
	if err := c.Store(MTimeOffset, 0, 32); err == nil {
		t.Fatal("expected access fault for non-64-bit store")
	}
}

func TestUnknownOffsetFaults(t *testing.T) {
	c := New()
	if _, err := c.Load(0x8000, 64); err == nil {
		t.Fatal("expected access fault for unmapped offset")
	}
}
