package vm

import (
	"testing"

	"rv64emu/bus"
	"rv64emu/cpu"
	"rv64emu/memory"
	"rv64emu/plic"
	"rv64emu/uart"
)

func newTestVM(t *testing.T) *VM {
	t.Helper()
	ram := memory.New(4096)
	return New(ram, nil)
}

func store32(t *testing.T, v *VM, addr uint64, word uint32) {
	t.Helper()
	if err := v.Bus.Store(addr, uint64(word), 32); err != nil {
		t.Fatal(err)
	}
}

// addi x0, x0, 0 -- a one-instruction no-op program so Tick has
// something harmless to execute while exercising device wiring.
const nop = uint32(0x00000013)

func TestTickExecutesOneInstruction(t *testing.T) {
	v := newTestVM(t)
	store32(t, v, bus.RAMBase, nop)

	if _, err := v.Tick(nil); err != nil {
		t.Fatal(err)
	}
	if v.CPU.PC != bus.RAMBase+4 {
		t.Fatalf("pc = %#x, want %#x", v.CPU.PC, bus.RAMBase+4)
	}
}

func TestUartEchoRoundTrip(t *testing.T) {
	v := newTestVM(t)
	store32(t, v, bus.RAMBase, nop)
	store32(t, v, bus.RAMBase+4, nop)

	// Guest "writes" 'H' to THR directly through the bus, simulating an
	// instruction that already ran; Tick should surface it as output.
	if err := v.Bus.Store(bus.UartBase+uart.THROffset, uint64('H'), 8); err != nil {
		t.Fatal(err)
	}
	out, err := v.Tick(nil)
	if err != nil {
		t.Fatal(err)
	}
	if out == nil || *out != 'H' {
		t.Fatalf("Tick output = %v, want 'H'", out)
	}

	// A byte offered on the way in should show up in RHR for the guest
	// to read, and should raise the PLIC's pending bit for UART's IRQ.
	in := byte('i')
	if _, err := v.Tick(&in); err != nil {
		t.Fatal(err)
	}
	val, err := v.Bus.Load(bus.UartBase+uart.RHROffset, 8)
	if err != nil {
		t.Fatal(err)
	}
	if val != 'i' {
		t.Fatalf("RHR = %q, want 'i'", val)
	}
}

func TestTickServicesExternalInterruptWhenEnabled(t *testing.T) {
	v := newTestVM(t)
	store32(t, v, bus.RAMBase, nop)
	v.CPU.Csr[cpu.CsrMtvec] = bus.RAMBase + 0x200
	v.CPU.Csr[cpu.CsrMstatus] |= 1 << 3 // MIE
	v.CPU.Csr[cpu.CsrMie] |= 1 << 9     // SEIE: the UART claim raises SEIP

	// The PLIC only claims interrupts it has been told are enabled.
	if err := v.Bus.Store(bus.PlicBase+plic.SEnableOffset, 1<<uart.IRQ, 32); err != nil {
		t.Fatal(err)
	}

	in := byte('x')
	if _, err := v.Tick(&in); err != nil {
		t.Fatal(err)
	}
	if v.CPU.PC != bus.RAMBase+0x200 {
		t.Fatalf("pc = %#x, want interrupt vector %#x", v.CPU.PC, bus.RAMBase+0x200)
	}
	if v.CPU.Csr[cpu.CsrMcause]>>63 == 0 {
		t.Fatal("mcause should have the interrupt bit set")
	}
}

func TestTickReturnsErrorOnUnconfiguredTrapVector(t *testing.T) {
	v := newTestVM(t)
	// ecall
	store32(t, v, bus.RAMBase, 0x00000073)
	// mtvec left at zero: an unconfigured vector, so the trap is fatal.
	if _, err := v.Tick(nil); err == nil {
		t.Fatal("expected an error when mtvec is unconfigured")
	}
}

func TestResetReappliesBootState(t *testing.T) {
	v := newTestVM(t)
	v.CPU.PC = 0xdeadbeef
	v.Reset()
	if v.CPU.PC != bus.RAMBase {
		t.Fatalf("pc after reset = %#x, want %#x", v.CPU.PC, bus.RAMBase)
	}
	if v.CPU.X[2] != bus.RAMBase+uint64(4096) {
		t.Fatalf("sp after reset = %#x, want top of ram", v.CPU.X[2])
	}
}
