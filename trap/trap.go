/*
 * rv64emu - Exception and interrupt taxonomy
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

// Package trap defines the RISC-V exception/interrupt taxonomy shared by
// bus, cpu and vm: cause codes and the associated trap value. It does not
// classify a trap as fatal; that is decided by the cpu package's
// TrapEntry/TakeInterrupt, which report a trap taken to address 0.
package trap

import "fmt"

// Kind names a synchronous exception cause. Values match the RISC-V
// privileged spec's exception code column (mcause/scause with the MSB
// clear).
type Kind uint

const (
	InstructionAddressMisaligned Kind = 0
	InstructionAccessFault       Kind = 1
	IllegalInstruction           Kind = 2
	Breakpoint                   Kind = 3
	LoadAddressMisaligned        Kind = 4
	LoadAccessFault              Kind = 5
	StoreAddressMisaligned       Kind = 6
	StoreAMOAccessFault          Kind = 7
	EnvironmentCallFromUMode     Kind = 8
	EnvironmentCallFromSMode     Kind = 9
	EnvironmentCallFromMMode     Kind = 11
)

// InterruptKind names an asynchronous interrupt cause, numbered the way
// mip/mie number them (mcause's MSB is set separately by Cause()).
type InterruptKind uint

const (
	SupervisorSoftwareInterrupt InterruptKind = 1
	MachineSoftwareInterrupt    InterruptKind = 3
	SupervisorTimerInterrupt    InterruptKind = 5
	MachineTimerInterrupt       InterruptKind = 7
	SupervisorExternalInterrupt InterruptKind = 9
	MachineExternalInterrupt    InterruptKind = 11
)

func (k Kind) String() string {
	switch k {
	case InstructionAddressMisaligned:
		return "instruction-address-misaligned"
	case InstructionAccessFault:
		return "instruction-access-fault"
	case IllegalInstruction:
		return "illegal-instruction"
	case Breakpoint:
		return "breakpoint"
	case LoadAddressMisaligned:
		return "load-address-misaligned"
	case LoadAccessFault:
		return "load-access-fault"
	case StoreAddressMisaligned:
		return "store-address-misaligned"
	case StoreAMOAccessFault:
		return "store-amo-access-fault"
	case EnvironmentCallFromUMode:
		return "ecall-from-u-mode"
	case EnvironmentCallFromSMode:
		return "ecall-from-s-mode"
	case EnvironmentCallFromMMode:
		return "ecall-from-m-mode"
	default:
		return fmt.Sprintf("exception(%d)", uint(k))
	}
}

// Exception is a synchronous fault raised by decode, execute or a bus
// access. It carries the trap value used to populate xtval on trap entry,
// the way spec.md §7 requires for every entry in its taxonomy table.
type Exception struct {
	Kind  Kind
	Value uint64 // raw instruction word, faulting address, or 0
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s (tval=0x%x)", e.Kind, e.Value)
}

// Cause returns the xcause encoding for this exception: the exception
// code in the low bits, MSB clear.
func (e *Exception) Cause() uint64 {
	return uint64(e.Kind)
}

// New builds an Exception of the given kind with the given trap value.
func New(kind Kind, value uint64) *Exception {
	return &Exception{Kind: kind, Value: value}
}

// Cause returns the xcause encoding for an interrupt: the interrupt
// number in the low bits with the XLEN-wide MSB set.
func Cause(kind InterruptKind) uint64 {
	return (uint64(1) << 63) | uint64(kind)
}
