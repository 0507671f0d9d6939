/*
 * rv64emu - Core-local interruptor (CLINT)
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

// Package clint implements the core-local interruptor: mtime and
// mtimecmp, per spec.md §4.4. Offsets are taken from original_source's
// clint.rs, which spec.md's Open Questions cite as authoritative for
// values "observed in source, not to be guessed".
package clint

import "rv64emu/trap"

const (
	MTimeCmpOffset uint64 = 0x4000
	MTimeOffset    uint64 = 0xbff8
)

// Clint models mtime/mtimecmp. Only 64-bit accesses at the two
// documented offsets are valid.
type Clint struct {
	mtime    uint64
	mtimecmp uint64
}

// New builds a Clint with mtime and mtimecmp both zero.
func New() *Clint {
	return &Clint{}
}

func (c *Clint) Reset() {
	c.mtime = 0
	c.mtimecmp = 0
}

// Tick advances mtime by one and reports whether the machine-timer
// interrupt condition (mtime >= mtimecmp && mtimecmp != 0) now holds.
func (c *Clint) Tick() bool {
	c.mtime++
	return c.Pending()
}

// Pending reports the current machine-timer interrupt condition without
// advancing mtime.
func (c *Clint) Pending() bool {
	return c.mtimecmp != 0 && c.mtime >= c.mtimecmp
}

func (c *Clint) Load(offset uint64, sizeBits uint) (uint64, error) {
	if sizeBits != 64 {
		return 0, trap.New(trap.LoadAccessFault, offset)
	}
	switch offset {
	case MTimeOffset:
		return c.mtime, nil
	case MTimeCmpOffset:
		return c.mtimecmp, nil
	default:
		return 0, trap.New(trap.LoadAccessFault, offset)
	}
}

func (c *Clint) Store(offset uint64, val uint64, sizeBits uint) error {
	if sizeBits != 64 {
		return trap.New(trap.StoreAMOAccessFault, offset)
	}
	switch offset {
	case MTimeOffset:
		c.mtime = val
	case MTimeCmpOffset:
		c.mtimecmp = val
	default:
		return trap.New(trap.StoreAMOAccessFault, offset)
	}
	return nil
}
