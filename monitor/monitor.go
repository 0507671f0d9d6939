/*
 * rv64emu - Host-side debug monitor
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

// Package monitor implements the host-side debug console: a
// liner-driven prompt over a small command table, in the shape of the
// teacher's command/parser + command/reader pair, retargeted from
// device attach/detach/show to register/CSR/memory inspection, single
// stepping and a breakpoint-on-pc run mode.
package monitor

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"rv64emu/vm"
)

type cmd struct {
	Name    string
	Min     int // shortest unambiguous abbreviation length
	Process func(m *Monitor, args []string) (quit bool, err error)
}

var cmdList = []cmd{
	{Name: "step", Min: 1, Process: (*Monitor).cmdStep},
	{Name: "continue", Min: 1, Process: (*Monitor).cmdContinue},
	{Name: "registers", Min: 1, Process: (*Monitor).cmdRegisters},
	{Name: "csr", Min: 3, Process: (*Monitor).cmdCsr},
	{Name: "examine", Min: 1, Process: (*Monitor).cmdExamine},
	{Name: "deposit", Min: 1, Process: (*Monitor).cmdDeposit},
	{Name: "break", Min: 2, Process: (*Monitor).cmdBreak},
	{Name: "quit", Min: 1, Process: (*Monitor).cmdQuit},
}

// Monitor wraps a VM with the command table above. Breakpoint is a
// single optional pc value; it is in effect only while hasBreak is set.
type Monitor struct {
	VM        *vm.VM
	Breakpoint uint64
	hasBreak   bool
	log        *slog.Logger
}

func New(v *vm.VM, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{VM: v, log: log}
}

// Run drives an interactive liner prompt until "quit" or the stream
// aborts, in the same shape as the teacher's command/reader.ConsoleReader.
func (m *Monitor) Run() {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		return CompleteCmd(partial)
	})

	for {
		input, err := line.Prompt("rv64> ")
		if err == nil {
			line.AppendHistory(input)
			quit, cmdErr := m.ProcessCommand(input)
			if cmdErr != nil {
				fmt.Println("Error: " + cmdErr.Error())
			}
			if quit {
				return
			}
			continue
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		m.log.Error("error reading line", "error", err)
		return
	}
}

// ProcessCommand looks up the first word of input against cmdList by
// unambiguous-prefix match, the way the teacher's parser.ProcessCommand
// resolves abbreviations like "co" for "continue".
func (m *Monitor) ProcessCommand(input string) (quit bool, err error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	c, ok := lookup(name)
	if !ok {
		return false, fmt.Errorf("unknown command: %s", fields[0])
	}
	return c.Process(m, fields[1:])
}

func lookup(name string) (cmd, bool) {
	for _, c := range cmdList {
		if len(name) >= c.Min && strings.HasPrefix(c.Name, name) {
			return c, true
		}
	}
	return cmd{}, false
}

// CompleteCmd returns every command name that could complete partial,
// for liner's tab-completion callback.
func CompleteCmd(partial string) []string {
	var out []string
	for _, c := range cmdList {
		if strings.HasPrefix(c.Name, strings.ToLower(partial)) {
			out = append(out, c.Name)
		}
	}
	return out
}

func (m *Monitor) cmdQuit(_ []string) (bool, error) {
	return true, nil
}

func (m *Monitor) cmdStep(_ []string) (bool, error) {
	_, err := m.VM.Tick(nil)
	if err != nil {
		return false, err
	}
	fmt.Println(formatRegisters(m.VM))
	return false, nil
}

// cmdContinue ticks until the breakpoint pc is reached, a fatal trap
// occurs, or a generous step ceiling is hit so a runaway guest image
// can't wedge the console.
func (m *Monitor) cmdContinue(_ []string) (bool, error) {
	const maxSteps = 10_000_000
	for i := 0; i < maxSteps; i++ {
		if m.hasBreak && m.VM.CPU.PC == m.Breakpoint {
			fmt.Printf("stopped at breakpoint 0x%x\n", m.Breakpoint)
			return false, nil
		}
		if _, err := m.VM.Tick(nil); err != nil {
			return false, err
		}
	}
	fmt.Println("step limit reached")
	return false, nil
}

func (m *Monitor) cmdRegisters(_ []string) (bool, error) {
	fmt.Println(formatRegisters(m.VM))
	return false, nil
}

func (m *Monitor) cmdCsr(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: csr <number>")
	}
	num, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil {
		return false, err
	}
	fmt.Printf("csr[0x%03x] = 0x%016x\n", num, m.VM.CPU.Csr[num&0xfff])
	return false, nil
}

func (m *Monitor) cmdExamine(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: examine <addr>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, err
	}
	val, err := m.VM.Bus.Load(addr, 64)
	if err != nil {
		return false, err
	}
	fmt.Printf("0x%016x: 0x%016x\n", addr, val)
	return false, nil
}

func (m *Monitor) cmdDeposit(args []string) (bool, error) {
	if len(args) != 2 {
		return false, errors.New("usage: deposit <addr> <value>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, err
	}
	val, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return false, err
	}
	return false, m.VM.Bus.Store(addr, val, 64)
}

func (m *Monitor) cmdBreak(args []string) (bool, error) {
	if len(args) != 1 {
		m.hasBreak = false
		fmt.Println("breakpoint cleared")
		return false, nil
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, err
	}
	m.Breakpoint = addr
	m.hasBreak = true
	fmt.Printf("breakpoint set at 0x%x\n", addr)
	return false, nil
}

func formatRegisters(v *vm.VM) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pc  = 0x%016x  mode = %d\n", v.CPU.PC, v.CPU.Mode)
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(&b, "x%-2d=0x%016x x%-2d=0x%016x x%-2d=0x%016x x%-2d=0x%016x\n",
			i, v.CPU.X[i], i+1, v.CPU.X[i+1], i+2, v.CPU.X[i+2], i+3, v.CPU.X[i+3])
	}
	return strings.TrimRight(b.String(), "\n")
}
