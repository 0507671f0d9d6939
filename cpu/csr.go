/*
 * rv64emu - CSR numbers and status/interrupt bit layout
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

// Privilege encodes the current mode. Values match spec.md §4.3's own
// resolution of the Open Question on mode numbering: User=0,
// Supervisor=1, Machine=3 (the RISC-V manual's own encoding, leaving 2
// reserved for Hypervisor, which this core never uses).
type Privilege uint8

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

// CSR numbers this core implements. Every other number in the
// 4096-entry file is a plain read/write slot, per spec.md §4.3's note
// that unlisted CSRs behave as simple 64-bit slots.
const (
	CsrSstatus uint16 = 0x100
	CsrSie     uint16 = 0x104
	CsrStvec   uint16 = 0x105
	CsrSscratch uint16 = 0x140
	CsrSepc    uint16 = 0x141
	CsrScause  uint16 = 0x142
	CsrStval   uint16 = 0x143
	CsrSip     uint16 = 0x144

	CsrMstatus  uint16 = 0x300
	CsrMisa     uint16 = 0x301
	CsrMedeleg  uint16 = 0x302
	CsrMideleg  uint16 = 0x303
	CsrMie      uint16 = 0x304
	CsrMtvec    uint16 = 0x305
	CsrMscratch uint16 = 0x340
	CsrMepc     uint16 = 0x341
	CsrMcause   uint16 = 0x342
	CsrMtval    uint16 = 0x343
	CsrMip      uint16 = 0x344
)

// mstatus/sstatus bit positions, per spec.md §4.3's canonical table.
const (
	statusSIE  = 1 << 1
	statusMIE  = 1 << 3
	statusSPIE = 1 << 5
	statusMPIE = 1 << 7
	statusSPP  = 1 << 8
	statusMPPShift = 11
	statusMPPMask  = uint64(0x3) << statusMPPShift
)

// mip/mie bit positions, per spec.md §4.3's canonical table.
const (
	mipSSIP = 1 << 1
	mipMSIP = 1 << 3
	mipSTIP = 1 << 5
	mipMTIP = 1 << 7
	mipSEIP = 1 << 9
	mipMEIP = 1 << 11
)

// interruptPriority lists the fixed order spec.md §4.3's
// pending-interrupt check resolves ties in: M-ext, M-sw, M-timer,
// S-ext, S-timer, S-sw.
var interruptPriority = []struct {
	bit  uint64
	code uint64
}{
	{mipMEIP, 11},
	{mipMSIP, 3},
	{mipMTIP, 7},
	{mipSEIP, 9},
	{mipSTIP, 5},
	{mipSSIP, 1},
}
