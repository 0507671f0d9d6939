/*
 * rv64emu - Instruction execution
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

package cpu

import (
	"math/bits"

	"rv64emu/decode"
	"rv64emu/trap"
)

// execute dispatches a decoded instruction. pcBefore is the
// pre-increment pc (the address the instruction was fetched from);
// c.PC already holds pcBefore+4 on entry, per spec.md §4.3's note that
// AUIPC/JAL/branches compute against the pre-increment value while
// JAL/JALR write the post-fetch value to rd.
func (c *CPU) execute(in decode.Inst, pcBefore uint64) error {
	switch in.Op {

	case decode.OpLUI:
		c.setReg(in.Rd, uint64(in.Imm))
	case decode.OpAUIPC:
		c.setReg(in.Rd, pcBefore+uint64(in.Imm))

	case decode.OpJAL:
		c.setReg(in.Rd, c.PC)
		c.PC = pcBefore + uint64(in.Imm)
	case decode.OpJALR:
		target := (c.X[in.Rs1] + uint64(in.Imm)) &^ 1
		c.setReg(in.Rd, c.PC)
		c.PC = target

	case decode.OpBEQ:
		c.branch(in, pcBefore, c.X[in.Rs1] == c.X[in.Rs2])
	case decode.OpBNE:
		c.branch(in, pcBefore, c.X[in.Rs1] != c.X[in.Rs2])
	case decode.OpBLT:
		c.branch(in, pcBefore, int64(c.X[in.Rs1]) < int64(c.X[in.Rs2]))
	case decode.OpBGE:
		c.branch(in, pcBefore, int64(c.X[in.Rs1]) >= int64(c.X[in.Rs2]))
	case decode.OpBLTU:
		c.branch(in, pcBefore, c.X[in.Rs1] < c.X[in.Rs2])
	case decode.OpBGEU:
		c.branch(in, pcBefore, c.X[in.Rs1] >= c.X[in.Rs2])

	case decode.OpLB, decode.OpLH, decode.OpLW, decode.OpLD, decode.OpLBU, decode.OpLHU, decode.OpLWU:
		return c.load(in)
	case decode.OpSB, decode.OpSH, decode.OpSW, decode.OpSD:
		return c.store(in)

	case decode.OpADDI:
		c.setReg(in.Rd, c.X[in.Rs1]+uint64(in.Imm))
	case decode.OpSLTI:
		c.setReg(in.Rd, boolU64(int64(c.X[in.Rs1]) < in.Imm))
	case decode.OpSLTIU:
		c.setReg(in.Rd, boolU64(c.X[in.Rs1] < uint64(in.Imm)))
	case decode.OpXORI:
		c.setReg(in.Rd, c.X[in.Rs1]^uint64(in.Imm))
	case decode.OpORI:
		c.setReg(in.Rd, c.X[in.Rs1]|uint64(in.Imm))
	case decode.OpANDI:
		c.setReg(in.Rd, c.X[in.Rs1]&uint64(in.Imm))
	case decode.OpSLLI:
		c.setReg(in.Rd, c.X[in.Rs1]<<in.Shamt)
	case decode.OpSRLI:
		c.setReg(in.Rd, c.X[in.Rs1]>>in.Shamt)
	case decode.OpSRAI:
		c.setReg(in.Rd, uint64(int64(c.X[in.Rs1])>>in.Shamt))

	case decode.OpADDIW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])+uint32(in.Imm)))
	case decode.OpSLLIW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])<<in.Shamt))
	case decode.OpSRLIW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])>>in.Shamt))
	case decode.OpSRAIW:
		c.setReg(in.Rd, uint64(int32(uint32(c.X[in.Rs1]))>>in.Shamt))

	case decode.OpADD:
		c.setReg(in.Rd, c.X[in.Rs1]+c.X[in.Rs2])
	case decode.OpSUB:
		c.setReg(in.Rd, c.X[in.Rs1]-c.X[in.Rs2])
	case decode.OpSLL:
		c.setReg(in.Rd, c.X[in.Rs1]<<(c.X[in.Rs2]&0x3f))
	case decode.OpSLT:
		c.setReg(in.Rd, boolU64(int64(c.X[in.Rs1]) < int64(c.X[in.Rs2])))
	case decode.OpSLTU:
		c.setReg(in.Rd, boolU64(c.X[in.Rs1] < c.X[in.Rs2]))
	case decode.OpXOR:
		c.setReg(in.Rd, c.X[in.Rs1]^c.X[in.Rs2])
	case decode.OpSRL:
		c.setReg(in.Rd, c.X[in.Rs1]>>(c.X[in.Rs2]&0x3f))
	case decode.OpSRA:
		c.setReg(in.Rd, uint64(int64(c.X[in.Rs1])>>(c.X[in.Rs2]&0x3f)))
	case decode.OpOR:
		c.setReg(in.Rd, c.X[in.Rs1]|c.X[in.Rs2])
	case decode.OpAND:
		c.setReg(in.Rd, c.X[in.Rs1]&c.X[in.Rs2])

	case decode.OpADDW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])+uint32(c.X[in.Rs2])))
	case decode.OpSUBW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])-uint32(c.X[in.Rs2])))
	case decode.OpSLLW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])<<(c.X[in.Rs2]&0x1f)))
	case decode.OpSRLW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])>>(c.X[in.Rs2]&0x1f)))
	case decode.OpSRAW:
		c.setReg(in.Rd, uint64(int32(uint32(c.X[in.Rs1]))>>(c.X[in.Rs2]&0x1f)))

	case decode.OpFENCE, decode.OpFENCEI, decode.OpSFENCEVMA:
		// No-ops: the core is sequentially consistent and models no
		// address translation, per spec.md §4.1(c) and §5.

	case decode.OpECALL:
		return trap.New(c.ecallKind(), 0)
	case decode.OpEBREAK:
		return trap.New(trap.Breakpoint, pcBefore)
	case decode.OpMRET:
		c.mret()
	case decode.OpSRET:
		c.sret()

	case decode.OpCSRRW:
		old := c.readCsr(in.Csr)
		c.writeCsr(in.Csr, c.X[in.Rs1])
		c.setReg(in.Rd, old)
	case decode.OpCSRRS:
		old := c.readCsr(in.Csr)
		if in.Rs1 != 0 {
			c.writeCsr(in.Csr, old|c.X[in.Rs1])
		}
		c.setReg(in.Rd, old)
	case decode.OpCSRRC:
		old := c.readCsr(in.Csr)
		if in.Rs1 != 0 {
			c.writeCsr(in.Csr, old&^c.X[in.Rs1])
		}
		c.setReg(in.Rd, old)
	case decode.OpCSRRWI:
		old := c.readCsr(in.Csr)
		c.writeCsr(in.Csr, uint64(in.Imm))
		c.setReg(in.Rd, old)
	case decode.OpCSRRSI:
		old := c.readCsr(in.Csr)
		if in.Imm != 0 {
			c.writeCsr(in.Csr, old|uint64(in.Imm))
		}
		c.setReg(in.Rd, old)
	case decode.OpCSRRCI:
		old := c.readCsr(in.Csr)
		if in.Imm != 0 {
			c.writeCsr(in.Csr, old&^uint64(in.Imm))
		}
		c.setReg(in.Rd, old)

	case decode.OpMUL:
		c.setReg(in.Rd, c.X[in.Rs1]*c.X[in.Rs2])
	case decode.OpMULH:
		c.setReg(in.Rd, uint64(mulHighSS(int64(c.X[in.Rs1]), int64(c.X[in.Rs2]))))
	case decode.OpMULHSU:
		c.setReg(in.Rd, uint64(mulHighSU(int64(c.X[in.Rs1]), c.X[in.Rs2])))
	case decode.OpMULHU:
		c.setReg(in.Rd, mulHighUU(c.X[in.Rs1], c.X[in.Rs2]))
	case decode.OpDIV:
		c.setReg(in.Rd, uint64(divS(int64(c.X[in.Rs1]), int64(c.X[in.Rs2]))))
	case decode.OpDIVU:
		c.setReg(in.Rd, divU(c.X[in.Rs1], c.X[in.Rs2]))
	case decode.OpREM:
		c.setReg(in.Rd, uint64(remS(int64(c.X[in.Rs1]), int64(c.X[in.Rs2]))))
	case decode.OpREMU:
		c.setReg(in.Rd, remU(c.X[in.Rs1], c.X[in.Rs2]))

	case decode.OpMULW:
		c.setReg(in.Rd, signExt32(uint32(c.X[in.Rs1])*uint32(c.X[in.Rs2])))
	case decode.OpDIVW:
		c.setReg(in.Rd, uint64(int32(divS(int64(int32(c.X[in.Rs1])), int64(int32(c.X[in.Rs2]))))))
	case decode.OpDIVUW:
		c.setReg(in.Rd, signExt32(uint32(divU(uint64(uint32(c.X[in.Rs1])), uint64(uint32(c.X[in.Rs2]))))))
	case decode.OpREMW:
		c.setReg(in.Rd, uint64(int32(remS(int64(int32(c.X[in.Rs1])), int64(int32(c.X[in.Rs2]))))))
	case decode.OpREMUW:
		c.setReg(in.Rd, signExt32(uint32(remU(uint64(uint32(c.X[in.Rs1])), uint64(uint32(c.X[in.Rs2]))))))

	case decode.OpLRW, decode.OpLRD, decode.OpSCW, decode.OpSCD,
		decode.OpAMOSWAPW, decode.OpAMOADDW, decode.OpAMOXORW, decode.OpAMOANDW, decode.OpAMOORW,
		decode.OpAMOMINW, decode.OpAMOMAXW, decode.OpAMOMINUW, decode.OpAMOMAXUW,
		decode.OpAMOSWAPD, decode.OpAMOADDD, decode.OpAMOXORD, decode.OpAMOANDD, decode.OpAMOORD,
		decode.OpAMOMIND, decode.OpAMOMAXD, decode.OpAMOMINUD, decode.OpAMOMAXUD:
		return c.atomic(in)

	default:
		return trap.New(trap.IllegalInstruction, uint64(in.Raw))
	}
	return nil
}

func (c *CPU) setReg(rd uint8, val uint64) {
	if rd == 0 {
		return
	}
	c.X[rd] = val
}

func (c *CPU) branch(in decode.Inst, pcBefore uint64, taken bool) {
	if taken {
		c.PC = pcBefore + uint64(in.Imm)
	}
}

func (c *CPU) load(in decode.Inst) error {
	addr := c.X[in.Rs1] + uint64(in.Imm)
	var size uint
	switch in.Op {
	case decode.OpLB, decode.OpLBU:
		size = 8
	case decode.OpLH, decode.OpLHU:
		size = 16
	case decode.OpLW, decode.OpLWU:
		size = 32
	case decode.OpLD:
		size = 64
	}
	val, err := c.bus.Load(addr, size)
	if err != nil {
		return err
	}
	switch in.Op {
	case decode.OpLB:
		c.setReg(in.Rd, uint64(int64(int8(val))))
	case decode.OpLH:
		c.setReg(in.Rd, uint64(int64(int16(val))))
	case decode.OpLW:
		c.setReg(in.Rd, uint64(int64(int32(val))))
	case decode.OpLD:
		c.setReg(in.Rd, val)
	case decode.OpLBU:
		c.setReg(in.Rd, uint64(uint8(val)))
	case decode.OpLHU:
		c.setReg(in.Rd, uint64(uint16(val)))
	case decode.OpLWU:
		c.setReg(in.Rd, uint64(uint32(val)))
	}
	return nil
}

func (c *CPU) store(in decode.Inst) error {
	addr := c.X[in.Rs1] + uint64(in.Imm)
	var size uint
	switch in.Op {
	case decode.OpSB:
		size = 8
	case decode.OpSH:
		size = 16
	case decode.OpSW:
		size = 32
	case decode.OpSD:
		size = 64
	}
	c.clearReservation()
	return c.bus.Store(addr, c.X[in.Rs2], size)
}

// atomic implements LR/SC and the AMO* read-modify-write ops, per
// spec.md §4.3's A-extension semantics: sequentially consistent since
// there is only ever one hart.
func (c *CPU) atomic(in decode.Inst) error {
	size := uint(32)
	is64 := false
	switch in.Op {
	case decode.OpLRD, decode.OpSCD, decode.OpAMOSWAPD, decode.OpAMOADDD, decode.OpAMOXORD,
		decode.OpAMOANDD, decode.OpAMOORD, decode.OpAMOMIND, decode.OpAMOMAXD,
		decode.OpAMOMINUD, decode.OpAMOMAXUD:
		size = 64
		is64 = true
	}
	addr := c.X[in.Rs1]

	switch in.Op {
	case decode.OpLRW, decode.OpLRD:
		val, err := c.bus.Load(addr, size)
		if err != nil {
			return err
		}
		c.reservation = addr
		c.reservationValid = true
		if is64 {
			c.setReg(in.Rd, val)
		} else {
			c.setReg(in.Rd, uint64(int64(int32(val))))
		}
		return nil

	case decode.OpSCW, decode.OpSCD:
		if c.reservationValid && c.reservation == addr {
			if err := c.bus.Store(addr, c.X[in.Rs2], size); err != nil {
				return err
			}
			c.clearReservation()
			c.setReg(in.Rd, 0)
		} else {
			c.setReg(in.Rd, 1)
		}
		return nil
	}

	old, err := c.bus.Load(addr, size)
	if err != nil {
		return err
	}
	c.clearReservation()

	var result uint64
	oldSigned := int64(old)
	rsSigned := int64(c.X[in.Rs2])
	if !is64 {
		oldSigned = int64(int32(old))
		rsSigned = int64(int32(c.X[in.Rs2]))
	}

	switch in.Op {
	case decode.OpAMOSWAPW, decode.OpAMOSWAPD:
		result = c.X[in.Rs2]
	case decode.OpAMOADDW, decode.OpAMOADDD:
		result = old + c.X[in.Rs2]
	case decode.OpAMOXORW, decode.OpAMOXORD:
		result = old ^ c.X[in.Rs2]
	case decode.OpAMOANDW, decode.OpAMOANDD:
		result = old & c.X[in.Rs2]
	case decode.OpAMOORW, decode.OpAMOORD:
		result = old | c.X[in.Rs2]
	case decode.OpAMOMINW, decode.OpAMOMIND:
		if oldSigned < rsSigned {
			result = old
		} else {
			result = c.X[in.Rs2]
		}
	case decode.OpAMOMAXW, decode.OpAMOMAXD:
		if oldSigned > rsSigned {
			result = old
		} else {
			result = c.X[in.Rs2]
		}
	case decode.OpAMOMINUW, decode.OpAMOMINUD:
		a, b := old, c.X[in.Rs2]
		if !is64 {
			a, b = uint64(uint32(old)), uint64(uint32(c.X[in.Rs2]))
		}
		if a < b {
			result = old
		} else {
			result = c.X[in.Rs2]
		}
	case decode.OpAMOMAXUW, decode.OpAMOMAXUD:
		a, b := old, c.X[in.Rs2]
		if !is64 {
			a, b = uint64(uint32(old)), uint64(uint32(c.X[in.Rs2]))
		}
		if a > b {
			result = old
		} else {
			result = c.X[in.Rs2]
		}
	}

	if err := c.bus.Store(addr, result, size); err != nil {
		return err
	}
	if is64 {
		c.setReg(in.Rd, old)
	} else {
		c.setReg(in.Rd, uint64(int64(int32(old))))
	}
	return nil
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func signExt32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

// mulHighSS/mulHighSU/mulHighUU compute the upper 64 bits of a 128-bit
// product via an unsigned 64x64 multiply plus the standard two's
// complement correction, avoiding a big.Int dependency for MULH/
// MULHSU/MULHU.
func mulHighSS(a, b int64) int64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return int64(hi)
}

func mulHighSU(a int64, b uint64) int64 {
	hi, _ := bits.Mul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	return int64(hi)
}

func mulHighUU(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}

// divS/remU/etc implement the RISC-V division exceptions of spec.md
// §4.3/§8 (B1): division by zero yields -1 (signed) or all-ones
// (unsigned); remainder by zero returns the dividend; signed
// INT_MIN/-1 returns INT_MIN for the quotient and 0 for the remainder.
func divS(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	if a == minInt64 && b == -1 {
		return minInt64
	}
	return a / b
}

func divU(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	return a / b
}

func remS(a, b int64) int64 {
	if b == 0 {
		return a
	}
	if a == minInt64 && b == -1 {
		return 0
	}
	return a % b
}

func remU(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

const minInt64 = int64(-1 << 63)
