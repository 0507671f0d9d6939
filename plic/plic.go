/*
 * rv64emu - Platform-level interrupt controller (PLIC)
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

// Package plic implements the minimal platform-level interrupt
// aggregator of spec.md §4.5: pending/senable/spriority/sclaim, with
// "write to sclaim == complete" claim semantics (spec.md's own
// resolution of the Open Question on claim-vs-mirror variants observed
// in source). Offsets are taken from original_source's plic.rs.
package plic

import "rv64emu/trap"

const (
	PendingOffset   uint64 = 0x1000
	SEnableOffset   uint64 = 0x2000
	SPriorityOffset uint64 = 0x201000
	SClaimOffset    uint64 = 0x201004
)

// Plic models the subset of a platform interrupt controller a bring-up
// image needs: one pending bit field, one enable field, a priority
// threshold and a claim/complete register.
type Plic struct {
	pending   uint32
	senable   uint32
	spriority uint32
	sclaim    uint32
}

func New() *Plic {
	return &Plic{}
}

func (p *Plic) Reset() {
	p.pending = 0
	p.senable = 0
	p.spriority = 0
	p.sclaim = 0
}

// SetPending marks interrupt id as pending, the way an external device
// (the UART) signals an edge to the aggregator.
func (p *Plic) SetPending(id uint32) {
	p.pending |= 1 << id
}

// Claim returns the current pending interrupt id and clears its pending
// bit, per spec.md §3's claim semantics. Returns 0 (reserved, no
// interrupt) if nothing is pending or enabled.
func (p *Plic) Claim() uint32 {
	avail := p.pending & p.senable
	if avail == 0 {
		return 0
	}
	for id := uint32(0); id < 32; id++ {
		if avail&(1<<id) != 0 {
			p.pending &^= 1 << id
			p.sclaim = id
			return id
		}
	}
	return 0
}

func (p *Plic) Load(offset uint64, sizeBits uint) (uint64, error) {
	if sizeBits != 32 {
		return 0, trap.New(trap.LoadAccessFault, offset)
	}
	switch offset {
	case PendingOffset:
		return uint64(p.pending), nil
	case SEnableOffset:
		return uint64(p.senable), nil
	case SPriorityOffset:
		return uint64(p.spriority), nil
	case SClaimOffset:
		id := p.Claim()
		return uint64(id), nil
	default:
		return 0, nil
	}
}

func (p *Plic) Store(offset uint64, val uint64, sizeBits uint) error {
	if sizeBits != 32 {
		return trap.New(trap.StoreAMOAccessFault, offset)
	}
	switch offset {
	case PendingOffset:
		p.pending = uint32(val)
	case SEnableOffset:
		p.senable = uint32(val)
	case SPriorityOffset:
		p.spriority = uint32(val)
	case SClaimOffset:
		// Write to sclaim acknowledges completion of the given id; no
		// further action needed since Claim() already cleared pending.
		p.sclaim = uint32(val)
	default:
		return nil
	}
	return nil
}
