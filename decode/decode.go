/*
 * rv64emu - 32-bit instruction decoder
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

// Package decode turns a 32-bit fixed-width instruction word into a
// tagged Inst record, per spec.md §4.1. Decoding is two steps: the low
// 7 bits of the word select a row in a 128-entry opcode→format table
// (empty rows are illegal-instruction); the format decoder then
// extracts and sign-extends the immediate and further discriminates by
// funct3/funct7 (or, for atomics, the top five bits of funct7).
//
// Execute (the cpu package) dispatches purely off the tagged Inst this
// package returns — it never re-inspects the raw opcode, so this
// package is the single source of truth for "what instruction is
// this", per spec.md §9.
package decode

import "rv64emu/trap"

type format uint8

const (
	fmtInvalid format = iota
	fmtR
	fmtI
	fmtS
	fmtB
	fmtU
	fmtJ
	fmtSystem // I-type immediate field, but funct3==0 selects ECALL/EBREAK/xRET/SFENCE.VMA
	fmtFence  // I-type immediate field, FENCE/FENCE.I no-ops
	fmtAmo    // R-type shape with funct5+aq/rl in place of funct7
)

const (
	opLUI      = 0b0110111
	opAUIPC    = 0b0010111
	opJAL      = 0b1101111
	opJALR     = 0b1100111
	opBRANCH   = 0b1100011
	opLOAD     = 0b0000011
	opSTORE    = 0b0100011
	opOPIMM    = 0b0010011
	opOP       = 0b0110011
	opMISCMEM  = 0b0001111
	opSYSTEM   = 0b1110011
	opOPIMM32  = 0b0011011
	opOP32     = 0b0111011
	opAMO      = 0b0101111
)

// opcodeFormat is the 128-entry format table spec.md §4.1 and §9
// require. Unused rows default to fmtInvalid (the zero value).
var opcodeFormat [128]format

func init() {
	opcodeFormat[opLUI] = fmtU
	opcodeFormat[opAUIPC] = fmtU
	opcodeFormat[opJAL] = fmtJ
	opcodeFormat[opJALR] = fmtI
	opcodeFormat[opBRANCH] = fmtB
	opcodeFormat[opLOAD] = fmtI
	opcodeFormat[opSTORE] = fmtS
	opcodeFormat[opOPIMM] = fmtI
	opcodeFormat[opOP] = fmtR
	opcodeFormat[opMISCMEM] = fmtFence
	opcodeFormat[opSYSTEM] = fmtSystem
	opcodeFormat[opOPIMM32] = fmtI
	opcodeFormat[opOP32] = fmtR
	opcodeFormat[opAMO] = fmtAmo
}

// Inst is a decoded instruction: an operation tag plus whichever
// operand fields that operation uses. Register indices are 5-bit
// numbers; Imm is a sign-extended 64-bit signed value; Shamt holds
// shift amounts up to 6 bits.
type Inst struct {
	Op     Op
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Imm    int64
	Shamt  uint8
	Csr    uint16
	Aq, Rl bool
	Raw    uint32
}

// Decode decodes a 32-bit instruction word. An opcode with no table
// entry, or a funct3/funct7 combination the RISC-V manual doesn't
// list, yields an IllegalInstruction exception carrying the raw word.
func Decode(word uint32) (Inst, error) {
	op := opcode(word)
	fmtKind := opcodeFormat[op]
	if fmtKind == fmtInvalid {
		return Inst{}, trap.New(trap.IllegalInstruction, uint64(word))
	}

	switch op {
	case opLUI:
		return Inst{Op: OpLUI, Rd: rd(word), Imm: immU(word), Raw: word}, nil
	case opAUIPC:
		return Inst{Op: OpAUIPC, Rd: rd(word), Imm: immU(word), Raw: word}, nil
	case opJAL:
		return Inst{Op: OpJAL, Rd: rd(word), Imm: immJ(word), Raw: word}, nil
	case opJALR:
		if funct3(word) != 0 {
			return illegal(word)
		}
		return Inst{Op: OpJALR, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case opBRANCH:
		return decodeBranch(word)
	case opLOAD:
		return decodeLoad(word)
	case opSTORE:
		return decodeStore(word)
	case opOPIMM:
		return decodeOpImm(word)
	case opOP:
		return decodeOp(word)
	case opOPIMM32:
		return decodeOpImm32(word)
	case opOP32:
		return decodeOp32(word)
	case opMISCMEM:
		return decodeMiscMem(word)
	case opSYSTEM:
		return decodeSystem(word)
	case opAMO:
		return decodeAmo(word)
	default:
		return illegal(word)
	}
}

func illegal(word uint32) (Inst, error) {
	return Inst{}, trap.New(trap.IllegalInstruction, uint64(word))
}

func decodeBranch(word uint32) (Inst, error) {
	var op Op
	switch funct3(word) {
	case 0b000:
		op = OpBEQ
	case 0b001:
		op = OpBNE
	case 0b100:
		op = OpBLT
	case 0b101:
		op = OpBGE
	case 0b110:
		op = OpBLTU
	case 0b111:
		op = OpBGEU
	default:
		return illegal(word)
	}
	return Inst{Op: op, Rs1: rs1(word), Rs2: rs2(word), Imm: immB(word), Raw: word}, nil
}

func decodeLoad(word uint32) (Inst, error) {
	var op Op
	switch funct3(word) {
	case 0b000:
		op = OpLB
	case 0b001:
		op = OpLH
	case 0b010:
		op = OpLW
	case 0b011:
		op = OpLD
	case 0b100:
		op = OpLBU
	case 0b101:
		op = OpLHU
	case 0b110:
		op = OpLWU
	default:
		return illegal(word)
	}
	return Inst{Op: op, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
}

func decodeStore(word uint32) (Inst, error) {
	var op Op
	switch funct3(word) {
	case 0b000:
		op = OpSB
	case 0b001:
		op = OpSH
	case 0b010:
		op = OpSW
	case 0b011:
		op = OpSD
	default:
		return illegal(word)
	}
	return Inst{Op: op, Rs1: rs1(word), Rs2: rs2(word), Imm: immS(word), Raw: word}, nil
}

func decodeOpImm(word uint32) (Inst, error) {
	f3 := funct3(word)
	switch f3 {
	case 0b000:
		return Inst{Op: OpADDI, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case 0b010:
		return Inst{Op: OpSLTI, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case 0b011:
		return Inst{Op: OpSLTIU, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case 0b100:
		return Inst{Op: OpXORI, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case 0b110:
		return Inst{Op: OpORI, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case 0b111:
		return Inst{Op: OpANDI, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case 0b001:
		if funct7(word)>>1 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpSLLI, Rd: rd(word), Rs1: rs1(word), Shamt: shamt64(word), Raw: word}, nil
	case 0b101:
		if bit30(word) {
			return Inst{Op: OpSRAI, Rd: rd(word), Rs1: rs1(word), Shamt: shamt64(word), Raw: word}, nil
		}
		return Inst{Op: OpSRLI, Rd: rd(word), Rs1: rs1(word), Shamt: shamt64(word), Raw: word}, nil
	default:
		return illegal(word)
	}
}

func decodeOp(word uint32) (Inst, error) {
	f3 := funct3(word)
	f7 := funct7(word)
	if f7 == 0b0000001 {
		switch f3 {
		case 0b000:
			return Inst{Op: OpMUL, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b001:
			return Inst{Op: OpMULH, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b010:
			return Inst{Op: OpMULHSU, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b011:
			return Inst{Op: OpMULHU, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b100:
			return Inst{Op: OpDIV, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b101:
			return Inst{Op: OpDIVU, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b110:
			return Inst{Op: OpREM, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b111:
			return Inst{Op: OpREMU, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		}
		return illegal(word)
	}
	if f7 != 0 && f7 != 0b0100000 {
		return illegal(word)
	}
	switch f3 {
	case 0b000:
		if bit30(word) {
			return Inst{Op: OpSUB, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		}
		return Inst{Op: OpADD, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b001:
		if f7 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpSLL, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b010:
		if f7 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpSLT, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b011:
		if f7 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpSLTU, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b100:
		if f7 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpXOR, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b101:
		if bit30(word) {
			return Inst{Op: OpSRA, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		}
		return Inst{Op: OpSRL, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b110:
		if f7 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpOR, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b111:
		if f7 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpAND, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	default:
		return illegal(word)
	}
}

func decodeOpImm32(word uint32) (Inst, error) {
	switch funct3(word) {
	case 0b000:
		return Inst{Op: OpADDIW, Rd: rd(word), Rs1: rs1(word), Imm: immI(word), Raw: word}, nil
	case 0b001:
		if funct7(word) != 0 {
			return illegal(word)
		}
		return Inst{Op: OpSLLIW, Rd: rd(word), Rs1: rs1(word), Shamt: shamt32(word), Raw: word}, nil
	case 0b101:
		if bit30(word) {
			return Inst{Op: OpSRAIW, Rd: rd(word), Rs1: rs1(word), Shamt: shamt32(word), Raw: word}, nil
		}
		return Inst{Op: OpSRLIW, Rd: rd(word), Rs1: rs1(word), Shamt: shamt32(word), Raw: word}, nil
	default:
		return illegal(word)
	}
}

func decodeOp32(word uint32) (Inst, error) {
	f3 := funct3(word)
	f7 := funct7(word)
	if f7 == 0b0000001 {
		switch f3 {
		case 0b000:
			return Inst{Op: OpMULW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b100:
			return Inst{Op: OpDIVW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b101:
			return Inst{Op: OpDIVUW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b110:
			return Inst{Op: OpREMW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		case 0b111:
			return Inst{Op: OpREMUW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		}
		return illegal(word)
	}
	if f7 != 0 && f7 != 0b0100000 {
		return illegal(word)
	}
	switch f3 {
	case 0b000:
		if bit30(word) {
			return Inst{Op: OpSUBW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		}
		return Inst{Op: OpADDW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b001:
		if f7 != 0 {
			return illegal(word)
		}
		return Inst{Op: OpSLLW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	case 0b101:
		if bit30(word) {
			return Inst{Op: OpSRAW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
		}
		return Inst{Op: OpSRLW, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Raw: word}, nil
	default:
		return illegal(word)
	}
}

// decodeMiscMem handles FENCE and FENCE.I, both no-ops: the emulator
// is sequentially consistent, per spec.md §4.1(c).
func decodeMiscMem(word uint32) (Inst, error) {
	switch funct3(word) {
	case 0b000:
		return Inst{Op: OpFENCE, Raw: word}, nil
	case 0b001:
		return Inst{Op: OpFENCEI, Raw: word}, nil
	default:
		return illegal(word)
	}
}

// decodeSystem handles ECALL/EBREAK/SRET/MRET/SFENCE.VMA and the six
// Zicsr forms, per spec.md §4.1.
func decodeSystem(word uint32) (Inst, error) {
	f3 := funct3(word)
	if f3 == 0 {
		imm := uint32(immI(word)) & 0xfff
		switch imm {
		case 0:
			return Inst{Op: OpECALL, Raw: word}, nil
		case 1:
			return Inst{Op: OpEBREAK, Raw: word}, nil
		case 258:
			return Inst{Op: OpSRET, Raw: word}, nil
		case 770:
			return Inst{Op: OpMRET, Raw: word}, nil
		default:
			if funct7(word) != 0 {
				// SFENCE.VMA: (funct3=0, non-zero funct7) decodes to a
				// no-op placeholder, per spec.md §4.1(b).
				return Inst{Op: OpSFENCEVMA, Raw: word}, nil
			}
			return illegal(word)
		}
	}

	csr := uint16((word >> 20) & 0xfff)
	switch f3 {
	case 0b001:
		return Inst{Op: OpCSRRW, Rd: rd(word), Rs1: rs1(word), Csr: csr, Raw: word}, nil
	case 0b010:
		return Inst{Op: OpCSRRS, Rd: rd(word), Rs1: rs1(word), Csr: csr, Raw: word}, nil
	case 0b011:
		return Inst{Op: OpCSRRC, Rd: rd(word), Rs1: rs1(word), Csr: csr, Raw: word}, nil
	case 0b101:
		return Inst{Op: OpCSRRWI, Rd: rd(word), Imm: int64(rs1(word)), Csr: csr, Raw: word}, nil
	case 0b110:
		return Inst{Op: OpCSRRSI, Rd: rd(word), Imm: int64(rs1(word)), Csr: csr, Raw: word}, nil
	case 0b111:
		return Inst{Op: OpCSRRCI, Rd: rd(word), Imm: int64(rs1(word)), Csr: csr, Raw: word}, nil
	default:
		return illegal(word)
	}
}

var amoW = map[uint8]Op{
	0b00010: OpLRW,
	0b00011: OpSCW,
	0b00001: OpAMOSWAPW,
	0b00000: OpAMOADDW,
	0b00100: OpAMOXORW,
	0b01100: OpAMOANDW,
	0b01000: OpAMOORW,
	0b10000: OpAMOMINW,
	0b10100: OpAMOMAXW,
	0b11000: OpAMOMINUW,
	0b11100: OpAMOMAXUW,
}

var amoD = map[uint8]Op{
	0b00010: OpLRD,
	0b00011: OpSCD,
	0b00001: OpAMOSWAPD,
	0b00000: OpAMOADDD,
	0b00100: OpAMOXORD,
	0b01100: OpAMOANDD,
	0b01000: OpAMOORD,
	0b10000: OpAMOMIND,
	0b10100: OpAMOMAXD,
	0b11000: OpAMOMINUD,
	0b11100: OpAMOMAXUD,
}

// decodeAmo handles the A extension: the top five bits of funct7
// select the atomic operation, per spec.md §4.1.
func decodeAmo(word uint32) (Inst, error) {
	f5 := amoFunct5(word)
	aq, rl := aqRl(word)
	var table map[uint8]Op
	switch funct3(word) {
	case 0b010:
		table = amoW
	case 0b011:
		table = amoD
	default:
		return illegal(word)
	}
	op, ok := table[f5]
	if !ok {
		return illegal(word)
	}
	inst := Inst{Op: op, Rd: rd(word), Rs1: rs1(word), Rs2: rs2(word), Aq: aq, Rl: rl, Raw: word}
	if op == OpLRW || op == OpLRD {
		inst.Rs2 = 0
	}
	return inst, nil
}
