/*
 * rv64emu - Instruction field and immediate extraction
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

package decode

// Field extraction follows the bit layouts cross-checked against
// original_source's src/inst.rs and bassosimone-risc32's field helpers.
// All sign extension is an arithmetic right shift of a 32-bit
// intermediate, per spec.md §4.1.

func rd(w uint32) uint8     { return uint8((w >> 7) & 0x1f) }
func funct3(w uint32) uint8 { return uint8((w >> 12) & 0x7) }
func rs1(w uint32) uint8    { return uint8((w >> 15) & 0x1f) }
func rs2(w uint32) uint8    { return uint8((w >> 20) & 0x1f) }
func funct7(w uint32) uint8 { return uint8((w >> 25) & 0x7f) }
func opcode(w uint32) uint8 { return uint8(w & 0x7f) }

func immI(w uint32) int64 {
	return int64(int32(w) >> 20)
}

func immS(w uint32) int64 {
	hi := int64(int32(w&0xfe000000) >> 20)
	lo := int64((w >> 7) & 0x1f)
	return hi | lo
}

func immB(w uint32) int64 {
	hi := int64(int32(w&0x80000000) >> 19)
	b11 := int64((w & 0x80) << 4)
	mid := int64((w >> 20) & 0x7e0)
	b4_1 := int64((w >> 7) & 0x1e)
	return hi | b11 | mid | b4_1
}

func immU(w uint32) int64 {
	return int64(int32(w & 0xfffff000))
}

func immJ(w uint32) int64 {
	hi := int64(int32(w&0x80000000) >> 11)
	b19_12 := int64(w & 0xff000)
	b11 := int64((w >> 9) & 0x800)
	b10_1 := int64((w >> 20) & 0x7fe)
	return hi | b19_12 | b11 | b10_1
}

// shamt64 extracts a doubleword shift amount (low 6 bits of the I-type
// immediate field, RV64's SLLI/SRLI/SRAI).
func shamt64(w uint32) uint8 {
	return uint8((w >> 20) & 0x3f)
}

// shamt32 extracts a word-form shift amount (low 5 bits, *IW variants).
func shamt32(w uint32) uint8 {
	return uint8((w >> 20) & 0x1f)
}

// bit30 reports whether bit 30 (the SRLI/SRAI and SUB/SRA
// discriminator) is set.
func bit30(w uint32) bool {
	return w&(1<<30) != 0
}

func aqRl(w uint32) (aq, rl bool) {
	return w&(1<<26) != 0, w&(1<<25) != 0
}

// amoFunct5 extracts the top five bits of funct7 that distinguish AMO
// operations, per spec.md §4.1.
func amoFunct5(w uint32) uint8 {
	return uint8((w >> 27) & 0x1f)
}
