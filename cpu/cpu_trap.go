/*
 * rv64emu - Trap entry, trap return and pending-interrupt resolution
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

import "rv64emu/trap"

func (c *CPU) ecallKind() trap.Kind {
	switch c.Mode {
	case User:
		return trap.EnvironmentCallFromUMode
	case Supervisor:
		return trap.EnvironmentCallFromSMode
	default:
		return trap.EnvironmentCallFromMMode
	}
}

// delegated reports whether an exception/interrupt of the given cause
// is delegated to Supervisor, per spec.md §4.3: only possible when the
// current mode is Supervisor or User, and only when the corresponding
// medeleg/mideleg bit is set.
func (c *CPU) delegated(cause uint64, isInterrupt bool) bool {
	if c.Mode == Machine {
		return false
	}
	bit := cause & 63
	if isInterrupt {
		return c.Csr[CsrMideleg]&(1<<bit) != 0
	}
	return c.Csr[CsrMedeleg]&(1<<bit) != 0
}

// TrapEntry redirects control to the trap handler for the given
// exception, per spec.md §4.3's trap entry steps. pc is the faulting
// instruction's address (already restored by Step on error). Returns
// true if the trap target is address 0, which the VM treats as fatal
// per spec.md §7 (an unconfigured mtvec/stvec after reset).
func (c *CPU) TrapEntry(exc *trap.Exception, pc uint64) (fatal bool) {
	return c.trapEntry(exc.Cause(), exc.Value, pc, false)
}

// TakeInterrupt redirects control for an accepted interrupt whose
// cause was chosen by CheckInterrupt. pc is the address of the next
// instruction that has not yet executed.
func (c *CPU) TakeInterrupt(cause uint64, pc uint64) (fatal bool) {
	return c.trapEntry(cause, 0, pc, true)
}

func (c *CPU) trapEntry(cause uint64, tval uint64, pc uint64, isInterrupt bool) (fatal bool) {
	toSupervisor := c.delegated(cause, isInterrupt)

	var tvec, epcCsr, causeCsr, tvalCsr uint16
	if toSupervisor {
		tvec, epcCsr, causeCsr, tvalCsr = CsrStvec, CsrSepc, CsrScause, CsrStval
	} else {
		tvec, epcCsr, causeCsr, tvalCsr = CsrMtvec, CsrMepc, CsrMcause, CsrMtval
	}

	c.Csr[epcCsr] = pc
	c.Csr[causeCsr] = cause
	c.Csr[tvalCsr] = tval

	base := c.Csr[tvec] &^ 3
	vectored := c.Csr[tvec]&1 != 0
	if isInterrupt && vectored {
		code := cause &^ (uint64(1) << 63)
		c.PC = base + code*4
	} else {
		c.PC = base
	}

	if toSupervisor {
		status := c.Csr[CsrMstatus]
		if status&statusSIE != 0 {
			status |= statusSPIE
		} else {
			status &^= statusSPIE
		}
		status &^= statusSIE
		if c.Mode == Supervisor {
			status |= statusSPP
		} else {
			status &^= statusSPP
		}
		c.Csr[CsrMstatus] = status
		c.Mode = Supervisor
	} else {
		status := c.Csr[CsrMstatus]
		if status&statusMIE != 0 {
			status |= statusMPIE
		} else {
			status &^= statusMPIE
		}
		status &^= statusMIE
		status = (status &^ statusMPPMask) | (uint64(c.Mode) << statusMPPShift)
		c.Csr[CsrMstatus] = status
		c.Mode = Machine
	}

	return base == 0
}

// mret implements the MRET trap-return sequence of spec.md §4.3.
func (c *CPU) mret() {
	status := c.Csr[CsrMstatus]
	mpp := Privilege((status & statusMPPMask) >> statusMPPShift)
	if status&statusMPIE != 0 {
		status |= statusMIE
	} else {
		status &^= statusMIE
	}
	status |= statusMPIE
	status &^= statusMPPMask
	c.Csr[CsrMstatus] = status
	c.Mode = mpp
	c.PC = c.Csr[CsrMepc] &^ 3
}

// sret is the Supervisor analogue of mret.
func (c *CPU) sret() {
	status := c.Csr[CsrMstatus]
	var spp Privilege
	if status&statusSPP != 0 {
		spp = Supervisor
	} else {
		spp = User
	}
	if status&statusSPIE != 0 {
		status |= statusSIE
	} else {
		status &^= statusSIE
	}
	status |= statusSPIE
	status &^= statusSPP
	c.Csr[CsrMstatus] = status
	c.Mode = spp
	c.PC = c.Csr[CsrSepc] &^ 3
}

// SetExternalPending sets mip.SEIP, the way the VM reports a UART
// interrupt edge claimed through the PLIC, per spec.md §4.3's
// pending-interrupt check.
func (c *CPU) SetExternalPending(pending bool) {
	if pending {
		c.Csr[CsrMip] |= mipSEIP
	} else {
		c.Csr[CsrMip] &^= mipSEIP
	}
}

// SetTimerPending sets or clears mip.MTIP, the way the VM reports the
// CLINT's mtime >= mtimecmp condition, per spec.md §4.4.
func (c *CPU) SetTimerPending(pending bool) {
	if pending {
		c.Csr[CsrMip] |= mipMTIP
	} else {
		c.Csr[CsrMip] &^= mipMTIP
	}
}

// interruptsGloballyEnabled reports whether the pending-interrupt
// check should run at all, per spec.md §4.3: skipped if the current
// mode is Machine with MIE=0, or Supervisor with SIE=0. User mode
// always takes pending interrupts (there is no UIE in this model).
func (c *CPU) interruptsGloballyEnabled() bool {
	switch c.Mode {
	case Machine:
		return c.Csr[CsrMstatus]&statusMIE != 0
	case Supervisor:
		return c.Csr[CsrMstatus]&statusSIE != 0
	default:
		return true
	}
}

// CheckInterrupt resolves the pending-interrupt check of spec.md
// §4.3: the first set bit in mie & mip in the fixed priority order
// {M-ext, M-sw, M-timer, S-ext, S-timer, S-sw} is cleared and
// returned as the interrupt cause to take.
func (c *CPU) CheckInterrupt() (cause uint64, ok bool) {
	if !c.interruptsGloballyEnabled() {
		return 0, false
	}
	active := c.Csr[CsrMie] & c.Csr[CsrMip]
	for _, p := range interruptPriority {
		if active&p.bit != 0 {
			c.Csr[CsrMip] &^= p.bit
			return (uint64(1) << 63) | p.code, true
		}
	}
	return 0, false
}
