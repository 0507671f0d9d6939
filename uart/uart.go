/*
 * rv64emu - 16550-style UART
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

// Package uart implements the byte-wise 16550-style serial port of
// spec.md §4.6: RHR/THR at offset 0 (shared, distinguished by
// direction), LCR at 3, LSR at 5, with sticky new_tx and rx_ready
// flags. Offsets and masks are taken from original_source's uart.rs.
package uart

import "rv64emu/trap"

const (
	Size uint64 = 0x100

	// IRQ is the external interrupt id this UART asserts to the PLIC.
	IRQ uint32 = 10

	RHROffset uint64 = 0
	THROffset uint64 = 0
	LCROffset uint64 = 3
	LSROffset uint64 = 5

	LSRRxMask uint8 = 1      // data waiting in RHR
	LSRTxMask uint8 = 1 << 5 // THR/transmitter ready
)

// Uart models a single 16550-style serial port. LSR.TX is permanently
// set in this model: the guest may always write THR.
type Uart struct {
	regs  [Size]byte
	newTX bool // a byte is queued in THR, waiting for the host
}

func New() *Uart {
	u := &Uart{}
	u.Reset()
	return u
}

func (u *Uart) Reset() {
	for i := range u.regs {
		u.regs[i] = 0
	}
	u.newTX = false
	u.regs[LSROffset] |= LSRTxMask
}

// Offer delivers a host input byte to the guest if the receive holding
// register is free, asserting an external-interrupt edge. It is a
// no-op if the RX flag is already set (no room until the guest reads
// RHR).
func (u *Uart) Offer(b byte) (asserted bool) {
	if u.regs[LSROffset]&LSRRxMask != 0 {
		return false
	}
	u.regs[RHROffset] = b
	u.regs[LSROffset] |= LSRRxMask
	return true
}

// TakeOutput returns the byte queued by the guest's last THR write, if
// any, clearing the pending flag.
func (u *Uart) TakeOutput() (byte, bool) {
	if !u.newTX {
		return 0, false
	}
	u.newTX = false
	return u.regs[THROffset], true
}

func (u *Uart) Load(offset uint64, sizeBits uint) (uint64, error) {
	if sizeBits != 8 {
		return 0, trap.New(trap.LoadAccessFault, offset)
	}
	if offset >= Size {
		return 0, trap.New(trap.LoadAccessFault, offset)
	}
	if offset == RHROffset {
		val := u.regs[RHROffset]
		u.regs[LSROffset] &^= LSRRxMask
		return uint64(val), nil
	}
	return uint64(u.regs[offset]), nil
}

func (u *Uart) Store(offset uint64, val uint64, sizeBits uint) error {
	if sizeBits != 8 {
		return trap.New(trap.StoreAMOAccessFault, offset)
	}
	if offset >= Size {
		return trap.New(trap.StoreAMOAccessFault, offset)
	}
	if offset == THROffset {
		u.regs[THROffset] = byte(val)
		u.newTX = true
		return nil
	}
	u.regs[offset] = byte(val)
	return nil
}
