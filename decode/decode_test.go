package decode

import "testing"

func encodeR(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func encodeI(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xfff)<<20 | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func encodeU(opcode, rd uint32, imm uint32) uint32 {
	return (imm & 0xfffff000) | (rd << 7) | opcode
}

func TestDecodeLUI(t *testing.T) {
	w := encodeU(opLUI, 5, 0x12345000)
	in, err := Decode(w)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpLUI || in.Rd != 5 || in.Imm != 0x12345000 {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeADDI(t *testing.T) {
	w := encodeI(opOPIMM, 0b000, 1, 2, -5)
	in, err := Decode(w)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpADDI || in.Rd != 1 || in.Rs1 != 2 || in.Imm != -5 {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeADDvsSUB(t *testing.T) {
	add := encodeR(opOP, 0b000, 0, 1, 2, 3)
	sub := encodeR(opOP, 0b000, 0b0100000, 1, 2, 3)
	inAdd, err := Decode(add)
	if err != nil || inAdd.Op != OpADD {
		t.Fatalf("add: %+v, %v", inAdd, err)
	}
	inSub, err := Decode(sub)
	if err != nil || inSub.Op != OpSUB {
		t.Fatalf("sub: %+v, %v", inSub, err)
	}
}

func TestDecodeSLLIWideShamt(t *testing.T) {
	// slli x5, x5, 40 -- shamt's bit 5 (word bit 25, funct7 bit 0) is
	// set, funct6 is still zero, so this is legal on RV64 even though the
	// bit lies inside the funct7 field; bit 30 (the SRLI/SRAI
	// discriminator) stays clear.
	w := encodeI(opOPIMM, 0b001, 5, 5, 40)
	in, err := Decode(w)
	if err != nil || in.Op != OpSLLI || in.Shamt != 40 {
		t.Fatalf("slli shamt=40: %+v, %v", in, err)
	}
}

func TestDecodeSRLIvsSRAI(t *testing.T) {
	srli := encodeI(opOPIMM, 0b101, 1, 2, 5)
	srai := encodeI(opOPIMM, 0b101, 1, 2, (1<<10)|5)
	inS, err := Decode(srli)
	if err != nil || inS.Op != OpSRLI {
		t.Fatalf("srli: %+v, %v", inS, err)
	}
	inA, err := Decode(srai)
	if err != nil || inA.Op != OpSRAI {
		t.Fatalf("srai: %+v, %v", inA, err)
	}
}

func TestDecodeMulDivFunct7(t *testing.T) {
	mul := encodeR(opOP, 0b000, 0b0000001, 1, 2, 3)
	in, err := Decode(mul)
	if err != nil || in.Op != OpMUL {
		t.Fatalf("mul: %+v, %v", in, err)
	}
}

func TestDecodeBranch(t *testing.T) {
	// beq x1, x2, 0x10
	w := uint32(0)
	w |= opBRANCH
	w |= 0b000 << 12
	w |= 1 << 15
	w |= 2 << 20
	// imm = 0x10: imm[11]=0 imm[4:1]=1000 imm[10:5]=000000 imm[12]=0
	w |= (0x8) << 8  // imm[4:1] = 1000 -> bits 11:8 hold imm[4:1]
	in, err := Decode(w)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpBEQ || in.Rs1 != 1 || in.Rs2 != 2 || in.Imm != 0x10 {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeLoadStore(t *testing.T) {
	lw := encodeI(opLOAD, 0b010, 5, 1, 8)
	in, err := Decode(lw)
	if err != nil || in.Op != OpLW || in.Imm != 8 {
		t.Fatalf("lw: %+v, %v", in, err)
	}

	// sw x2, 4(x1): imm split across bits.
	var sw uint32
	sw |= opSTORE
	sw |= 0b010 << 12
	sw |= 1 << 15
	sw |= 2 << 20
	sw |= (4 & 0x1f) << 7
	sw |= ((4 >> 5) & 0x7f) << 25
	inS, err := Decode(sw)
	if err != nil || inS.Op != OpSW || inS.Imm != 4 || inS.Rs1 != 1 || inS.Rs2 != 2 {
		t.Fatalf("sw: %+v, %v", inS, err)
	}
}

func TestDecodeSystemSpecialForms(t *testing.T) {
	ecall := encodeI(opSYSTEM, 0, 0, 0, 0)
	ebreak := encodeI(opSYSTEM, 0, 0, 0, 1)
	mret := encodeI(opSYSTEM, 0, 0, 0, 770)
	sret := encodeI(opSYSTEM, 0, 0, 0, 258)

	for _, tc := range []struct {
		w    uint32
		want Op
	}{
		{ecall, OpECALL},
		{ebreak, OpEBREAK},
		{mret, OpMRET},
		{sret, OpSRET},
	} {
		in, err := Decode(tc.w)
		if err != nil || in.Op != tc.want {
			t.Fatalf("word %#x: got %+v, %v, want %v", tc.w, in, err, tc.want)
		}
	}
}

func TestDecodeCsrrw(t *testing.T) {
	w := encodeI(opSYSTEM, 0b001, 5, 1, 0x300)
	in, err := Decode(w)
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != OpCSRRW || in.Csr != 0x300 || in.Rd != 5 || in.Rs1 != 1 {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeSfenceVma(t *testing.T) {
	w := encodeR(opSYSTEM, 0, 0b0001001, 0, 1, 2)
	in, err := Decode(w)
	if err != nil || in.Op != OpSFENCEVMA {
		t.Fatalf("got %+v, %v", in, err)
	}
}

func TestDecodeFenceNoOps(t *testing.T) {
	fence := encodeI(opMISCMEM, 0b000, 0, 0, 0)
	fencei := encodeI(opMISCMEM, 0b001, 0, 0, 0)
	in1, err := Decode(fence)
	if err != nil || in1.Op != OpFENCE {
		t.Fatalf("fence: %+v, %v", in1, err)
	}
	in2, err := Decode(fencei)
	if err != nil || in2.Op != OpFENCEI {
		t.Fatalf("fence.i: %+v, %v", in2, err)
	}
}

func TestDecodeAtomicLrSc(t *testing.T) {
	lrw := encodeR(opAMO, 0b010, 0b00010<<2, 5, 1, 0)
	in, err := Decode(lrw)
	if err != nil || in.Op != OpLRW {
		t.Fatalf("lr.w: %+v, %v", in, err)
	}
	scw := encodeR(opAMO, 0b010, 0b00011<<2, 5, 1, 2)
	in2, err := Decode(scw)
	if err != nil || in2.Op != OpSCW {
		t.Fatalf("sc.w: %+v, %v", in2, err)
	}
}

func TestDecodeIllegalOpcode(t *testing.T) {
	// 0b1111111 is not a valid RISC-V opcode row.
	_, err := Decode(0b1111111)
	if err == nil {
		t.Fatal("expected illegal-instruction for an unmapped opcode")
	}
}

func TestDecodeIllegalFunct3(t *testing.T) {
	// BRANCH opcode with an unassigned funct3 (010).
	w := encodeI(opBRANCH, 0b010, 0, 0, 0)
	_, err := Decode(w)
	if err == nil {
		t.Fatal("expected illegal-instruction for unassigned branch funct3")
	}
}
