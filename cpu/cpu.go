/*
 * rv64emu - CPU: architectural state, fetch-decode-execute
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package cpu holds the RV64 architectural state -- the integer
// register file, program counter, privilege mode and CSR file -- and
// drives fetch, decode and execute. Trap entry/return lives in
// cpu_trap.go; instruction semantics live in cpu_exec.go.
package cpu

import (
	"log/slog"

	"rv64emu/bus"
	"rv64emu/decode"
	"rv64emu/trap"
)

// CPU is one RV64 hart: 32 general registers (x[0] is wired to zero on
// every read), the program counter, the current privilege mode and a
// flat 4096-entry CSR file, per spec.md §3.
type CPU struct {
	X    [32]uint64
	PC   uint64
	Mode Privilege
	Csr  [4096]uint64

	bus *bus.Bus
	log *slog.Logger

	// reservation tracks the address an outstanding LR holds, per
	// spec.md §4.3's A-extension semantics. reservationValid is false
	// when no reservation is held.
	reservation      uint64
	reservationValid bool
}

// New builds a CPU wired to the given bus. Reset puts it into the
// state the VM's constructor expects: pc at RAM_BASE is the VM's job,
// not the CPU's -- New leaves PC at 0 until the caller sets it.
func New(b *bus.Bus, log *slog.Logger) *CPU {
	if log == nil {
		log = slog.Default()
	}
	c := &CPU{bus: b, log: log}
	c.Reset()
	return c
}

// Reset reinitializes registers, pc, mode and the CSR file to zero,
// per spec.md §3's lifecycle.
func (c *CPU) Reset() {
	for i := range c.X {
		c.X[i] = 0
	}
	for i := range c.Csr {
		c.Csr[i] = 0
	}
	c.PC = 0
	c.Mode = Machine
	c.reservationValid = false
}

// clearReservation drops any outstanding LR reservation. Per spec.md
// §5, any store anywhere clears it, keeping SC livelock-free on a
// single hart.
func (c *CPU) clearReservation() {
	c.reservationValid = false
}

// Step fetches, decodes and executes one instruction. On any
// exception the architectural state is left as of the faulting
// instruction (pc not advanced past it) and the exception is
// returned for the VM to feed to trap entry.
func (c *CPU) Step() error {
	faultPC := c.PC
	word, err := c.bus.Load(faultPC, 32)
	if err != nil {
		return err
	}
	if faultPC&0x3 != 0 {
		return trap.New(trap.InstructionAddressMisaligned, faultPC)
	}

	inst, derr := decode.Decode(uint32(word))
	if derr != nil {
		return derr
	}

	c.PC = faultPC + 4
	c.X[0] = 0

	if err := c.execute(inst, faultPC); err != nil {
		c.PC = faultPC
		return err
	}
	c.X[0] = 0
	return nil
}

func (c *CPU) readCsr(num uint16) uint64 {
	switch num {
	case CsrSstatus:
		return c.Csr[CsrMstatus] & sstatusMask
	case CsrSip:
		return c.Csr[CsrMip] & sMask
	case CsrSie:
		return c.Csr[CsrMie] & sMask
	default:
		return c.Csr[num&0xfff]
	}
}

func (c *CPU) writeCsr(num uint16, val uint64) {
	switch num {
	case CsrSstatus:
		c.Csr[CsrMstatus] = (c.Csr[CsrMstatus] &^ sstatusMask) | (val & sstatusMask)
	case CsrSip:
		c.Csr[CsrMip] = (c.Csr[CsrMip] &^ sMask) | (val & sMask)
	case CsrSie:
		c.Csr[CsrMie] = (c.Csr[CsrMie] &^ sMask) | (val & sMask)
	default:
		c.Csr[num&0xfff] = val
	}
}

// sstatusMask/sMask select the SSTATUS/SIP/SIE-visible subset of the
// corresponding M-mode CSR, per spec.md §9's note that SSTATUS is
// projected through the canonical bit positions rather than modeled as
// a distinct backing register.
const sstatusMask = statusSIE | statusSPIE | statusSPP
const sMask = mipSSIP | mipSTIP | mipSEIP
