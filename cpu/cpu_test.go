package cpu

import (
	"testing"

	"rv64emu/bus"
	"rv64emu/clint"
	"rv64emu/memory"
	"rv64emu/plic"
	"rv64emu/trap"
	"rv64emu/uart"
)

const ramBase = bus.RAMBase

func newTestCPU(t *testing.T, image []byte) *CPU {
	t.Helper()
	ram := memory.New(4096)
	if err := ram.LoadImage(image); err != nil {
		t.Fatal(err)
	}
	b := bus.New(ram, uint64(ram.Len()), clint.New(), plic.New(), uart.New())
	c := New(b, nil)
	c.PC = ramBase
	return c
}

func TestMinimalArithmetic(t *testing.T) {
	// addi x10, x0, 5
	c := newTestCPU(t, []byte{0x13, 0x05, 0x50, 0x00})
	if err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.X[10] != 5 {
		t.Fatalf("x10 = %d, want 5", c.X[10])
	}
	if c.PC != ramBase+4 {
		t.Fatalf("pc = %#x, want %#x", c.PC, ramBase+4)
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	c := newTestCPU(t, nil)
	c.X[6] = ramBase

	// addi x5,x0,0x42 ; addi x6,x6,0x100 ; sw x5,0(x6)  (x6 = RAM_BASE+0x100)
	prog := []uint32{
		encI(0x13, 0, 5, 0, 0x42),  // addi x5, x0, 0x42
		encI(0x13, 0, 6, 6, 0x100), // addi x6, x6, 0x100
		encS(0x23, 0b010, 6, 5, 0), // sw x5, 0(x6)
	}
	loadProgram(t, c, prog)

	for i := 0; i < 3; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	val, err := c.bus.Load(ramBase+0x100, 32)
	if err != nil {
		t.Fatal(err)
	}
	if val != 0x42 {
		t.Fatalf("stored value = %#x, want 0x42", val)
	}
}

func TestTakenBranch(t *testing.T) {
	c := newTestCPU(t, nil)
	prog := []uint32{
		encI(0x13, 0, 1, 0, 1), // addi x1, x0, 1
		encB(0b000, 1, 1, 8),   // beq x1, x1, +8
	}
	loadProgram(t, c, prog)
	if err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if err := c.Step(); err != nil {
		t.Fatal(err)
	}
	// The beq sits at RAM_BASE+4; its target is that address plus 8.
	if c.PC != ramBase+0xc {
		t.Fatalf("pc = %#x, want %#x", c.PC, ramBase+0xc)
	}
}

func TestEcallTrapSetsMachineState(t *testing.T) {
	c := newTestCPU(t, nil)
	c.Csr[CsrMtvec] = ramBase + 0x100
	prog := []uint32{encSystem(0, 0, 0, 0)} // ecall
	loadProgram(t, c, prog)

	err := c.Step()
	if err == nil {
		t.Fatal("expected ecall to raise an exception")
	}
	exc, ok := asException(err)
	if !ok {
		t.Fatalf("expected *trap.Exception, got %T", err)
	}
	if c.TrapEntry(exc, ramBase) {
		t.Fatal("trap entry to a configured mtvec should not be fatal")
	}
	if c.Csr[CsrMcause] != 11 {
		t.Fatalf("mcause = %d, want 11", c.Csr[CsrMcause])
	}
	if c.Csr[CsrMepc] != ramBase {
		t.Fatalf("mepc = %#x, want %#x", c.Csr[CsrMepc], ramBase)
	}
	if c.PC != ramBase+0x100 {
		t.Fatalf("pc = %#x, want %#x", c.PC, ramBase+0x100)
	}
	mpp := (c.Csr[CsrMstatus] & statusMPPMask) >> statusMPPShift
	if Privilege(mpp) != Machine {
		t.Fatalf("mstatus.MPP = %d, want Machine(3)", mpp)
	}
}

func TestMretRoundTrip(t *testing.T) {
	c := newTestCPU(t, nil)
	c.Csr[CsrMtvec] = ramBase + 0x100
	prog := []uint32{encSystem(0, 0, 0, 0)} // ecall
	loadProgram(t, c, prog)

	err := c.Step()
	exc, _ := asException(err)
	c.TrapEntry(exc, ramBase)

	c.mret()

	if c.PC != c.Csr[CsrMepc]&^3 {
		t.Fatalf("pc after mret = %#x, want mepc %#x", c.PC, c.Csr[CsrMepc])
	}
	if c.Mode != Machine {
		t.Fatalf("mode after mret = %d, want Machine", c.Mode)
	}
}

func TestDivisionEdgeCases(t *testing.T) {
	if got := divS(minInt64, -1); got != minInt64 {
		t.Fatalf("INT_MIN/-1 = %d, want INT_MIN", got)
	}
	if got := remS(minInt64, -1); got != 0 {
		t.Fatalf("INT_MIN%%-1 = %d, want 0", got)
	}
	if got := divS(7, 0); got != -1 {
		t.Fatalf("7/0 = %d, want -1", got)
	}
	if got := divU(7, 0); got != ^uint64(0) {
		t.Fatalf("7u/0 = %#x, want all-ones", got)
	}
	if got := remS(7, 0); got != 7 {
		t.Fatalf("7%%0 = %d, want 7 (dividend)", got)
	}
}

func TestAuipcUsesPreIncrementPC(t *testing.T) {
	c := newTestCPU(t, nil)
	prog := []uint32{encU(0x17, 1, 0x1000)} // auipc x1, 0x1000
	loadProgram(t, c, prog)
	if err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.X[1] != ramBase+0x1000 {
		t.Fatalf("x1 = %#x, want %#x", c.X[1], ramBase+0x1000)
	}
}

func TestX0AlwaysZero(t *testing.T) {
	c := newTestCPU(t, nil)
	prog := []uint32{encI(0x13, 0, 0, 0, 5)} // addi x0, x0, 5
	loadProgram(t, c, prog)
	if err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.X[0] != 0 {
		t.Fatalf("x0 = %d, want 0", c.X[0])
	}
}

// -- small test-local encoders, independent of the decode package's --

func encI(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xfff)<<20 | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func encU(opcode, rd uint32, imm uint32) uint32 {
	return (imm & 0xfffff000) | (rd << 7) | opcode
}

func encS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return ((u>>5)&0x7f)<<25 | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | ((u & 0x1f) << 7) | opcode
}

func encB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	bit12 := (u >> 12) & 1
	bit11 := (u >> 11) & 1
	bits10_5 := (u >> 5) & 0x3f
	bits4_1 := (u >> 1) & 0xf
	return bit12<<31 | bits10_5<<25 | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | bits4_1<<8 | bit11<<7 | 0b1100011
}

func encSystem(funct3, rd, rs1 uint32, imm int32) uint32 {
	return encI(0b1110011, funct3, rd, rs1, imm)
}

func loadProgram(t *testing.T, c *CPU, words []uint32) {
	t.Helper()
	for i, w := range words {
		if err := c.bus.Store(ramBase+uint64(i*4), uint64(w), 32); err != nil {
			t.Fatal(err)
		}
	}
}

func asException(err error) (*trap.Exception, bool) {
	e, ok := err.(*trap.Exception)
	return e, ok
}
