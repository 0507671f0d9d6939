/*
 * rv64emu - Top-level virtual machine: wiring and tick loop
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

// Package vm wires the CPU to the bus and its devices and drives the
// single-instruction tick spec.md §5 describes: one call in, one
// instruction executed, interrupts serviced, the UART pumped one byte
// in each direction. There are no suspension points within a tick and
// nothing is shared across ticks except the VM's own state, so the
// package needs no locking.
package vm

import (
	"log/slog"

	"rv64emu/bus"
	"rv64emu/clint"
	"rv64emu/cpu"
	"rv64emu/memory"
	"rv64emu/plic"
	"rv64emu/trap"
	"rv64emu/uart"
)

// VM owns every piece of architectural and device state: the CPU, the
// bus, and the CLINT/PLIC/UART devices. RAM is supplied by the caller
// and outlives the VM, per spec.md §5's "RAM is owned externally"
// resource note.
type VM struct {
	CPU   *cpu.CPU
	Bus   *bus.Bus
	Clint *clint.Clint
	Plic  *plic.Plic
	Uart  *uart.Uart
	ram   *memory.RAM

	log *slog.Logger
}

// New constructs a VM over the given RAM, per spec.md §6: x[2] (the
// stack pointer by convention) is set to RAM_BASE+ram_len, pc is set
// to RAM_BASE, and mode starts at Machine.
func New(ram *memory.RAM, log *slog.Logger) *VM {
	if log == nil {
		log = slog.Default()
	}
	cl := clint.New()
	pl := plic.New()
	ua := uart.New()
	b := bus.New(ram, uint64(ram.Len()), cl, pl, ua)
	c := cpu.New(b, log)

	v := &VM{CPU: c, Bus: b, Clint: cl, Plic: pl, Uart: ua, ram: ram, log: log}
	v.Reset()
	return v
}

// Reset restores architectural and device state, per spec.md §3's
// lifecycle, then reapplies the boot configuration New established.
func (v *VM) Reset() {
	v.Bus.Reset()
	v.CPU.Reset()
	v.CPU.X[2] = bus.RAMBase + uint64(v.ram.Len())
	v.CPU.PC = bus.RAMBase
}

// Tick executes one instruction, services interrupts and pumps the
// UART, per spec.md §6's tick contract. charIn, if non-nil, is
// offered to the UART's receive holding register. The returned byte,
// if any, is a byte the guest queued for transmission. A non-nil error
// is either the fatal condition of a trap with no configured handler
// (mtvec/stvec == 0) or an internal inconsistency; callers should stop
// calling Tick once it returns one.
func (v *VM) Tick(charIn *byte) (*byte, error) {
	if charIn != nil {
		if v.Uart.Offer(*charIn) {
			v.Plic.SetPending(uart.IRQ)
		}
	}

	pcBefore := v.CPU.PC
	if err := v.CPU.Step(); err != nil {
		if exc, ok := err.(*trap.Exception); ok {
			if v.CPU.TrapEntry(exc, pcBefore) {
				v.log.Error("trap taken to unconfigured vector", "cause", exc.Kind, "pc", pcBefore)
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	if v.Clint.Tick() {
		v.CPU.SetTimerPending(true)
	} else {
		v.CPU.SetTimerPending(false)
	}

	// The PLIC's pending bit was already set by Offer above when a new
	// byte arrived; claiming here mirrors spec.md §4.3's "claim ==
	// complete" minimal model. A zero id means nothing new arrived, so
	// any still-unserviced SEIP from an earlier tick is left alone.
	if id := v.Plic.Claim(); id != 0 {
		v.CPU.SetExternalPending(true)
	}

	if cause, ok := v.CPU.CheckInterrupt(); ok {
		if v.CPU.TakeInterrupt(cause, v.CPU.PC) {
			v.log.Error("interrupt taken to unconfigured vector", "cause", cause)
			return nil, trap.New(trap.InstructionAccessFault, cause)
		}
	}

	out, ok := v.Uart.TakeOutput()
	if !ok {
		return nil, nil
	}
	return &out, nil
}
