/*
 * rv64emu - Guest RAM
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

// Package memory implements the host-supplied backing store the bus routes
// RAM accesses to: a linear byte-addressable array with little-endian
// sized load/store, per spec.md §3 Guest RAM and §6's Memory interface.
package memory

import (
	"encoding/binary"

	"rv64emu/trap"
)

// RAM is a flat byte-addressable store of fixed length, created once at
// VM construction and reset in place. It does not know its own base
// address in the bus's address space; the bus passes it region-relative
// offsets.
type RAM struct {
	data []byte
}

// New allocates a RAM of the given length in bytes.
func New(size int) *RAM {
	return &RAM{data: make([]byte, size)}
}

// Reset clears the backing store.
func (r *RAM) Reset() {
	clear(r.data)
}

// Len returns the configured size in bytes.
func (r *RAM) Len() int {
	return len(r.data)
}

// Load loads the sized little-endian value at offset. sizeBits must be
// one of 8, 16, 32, 64.
func (r *RAM) Load(offset uint64, sizeBits uint) (uint64, error) {
	n := sizeBits / 8
	if offset+uint64(n) > uint64(len(r.data)) {
		return 0, trap.New(trap.LoadAccessFault, offset)
	}
	switch sizeBits {
	case 8:
		return uint64(r.data[offset]), nil
	case 16:
		return uint64(binary.LittleEndian.Uint16(r.data[offset:])), nil
	case 32:
		return uint64(binary.LittleEndian.Uint32(r.data[offset:])), nil
	case 64:
		return binary.LittleEndian.Uint64(r.data[offset:]), nil
	default:
		return 0, trap.New(trap.LoadAccessFault, offset)
	}
}

// Store writes the low sizeBits of val, little-endian, at offset.
func (r *RAM) Store(offset uint64, val uint64, sizeBits uint) error {
	n := sizeBits / 8
	if offset+uint64(n) > uint64(len(r.data)) {
		return trap.New(trap.StoreAMOAccessFault, offset)
	}
	switch sizeBits {
	case 8:
		r.data[offset] = byte(val)
	case 16:
		binary.LittleEndian.PutUint16(r.data[offset:], uint16(val))
	case 32:
		binary.LittleEndian.PutUint32(r.data[offset:], uint32(val))
	case 64:
		binary.LittleEndian.PutUint64(r.data[offset:], val)
	default:
		return trap.New(trap.StoreAMOAccessFault, offset)
	}
	return nil
}

// LoadImage copies a flat binary image to the start of RAM. Per spec.md
// §6, no ELF parsing is performed; the bytes are placed verbatim.
func (r *RAM) LoadImage(image []byte) error {
	if len(image) > len(r.data) {
		return trap.New(trap.StoreAMOAccessFault, uint64(len(r.data)))
	}
	copy(r.data, image)
	return nil
}
