/*
 * rv64emu - Main process
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

package main

import (
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"rv64emu/config"
	"rv64emu/cpu"
	"rv64emu/logger"
	"rv64emu/memory"
	"rv64emu/monitor"
	"rv64emu/vm"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optImage := getopt.StringLong("image", 'i', "", "Flat binary image, overrides the config file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMonitor := getopt.BoolLong("monitor", 'm', "Start in the interactive debug monitor")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	cfg := config.Default()
	if *optConfig != "" {
		loaded, err := config.Load(*optConfig)
		if err != nil {
			os.Stderr.WriteString("config: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}
	if *optImage != "" {
		cfg.ImagePath = *optImage
	}
	if *optLogFile != "" {
		cfg.LogPath = *optLogFile
	}

	log, closer, err := logger.New(cfg.LogPath, cfg.LogLevel, cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("log: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	log.Info("rv64emu started", "ramSize", cfg.RAMSize)

	ram := memory.New(int(cfg.RAMSize))
	if cfg.ImagePath != "" {
		image, err := os.ReadFile(cfg.ImagePath)
		if err != nil {
			log.Error("loading image", "path", cfg.ImagePath, "error", err)
			closer.Close()
			os.Exit(1)
		}
		if err := ram.LoadImage(image); err != nil {
			log.Error("loading image", "path", cfg.ImagePath, "error", err)
			closer.Close()
			os.Exit(1)
		}
	}

	machine := vm.New(ram, log)
	if cfg.MTVec != 0 {
		machine.CPU.Csr[cpu.CsrMtvec] = cfg.MTVec
	}

	if *optMonitor {
		monitor.New(machine, log).Run()
		return
	}

	// Wait for a SIGINT or SIGTERM signal to shut down cleanly instead of
	// ticking forever; a single hart with no suspension points has
	// nothing else to select on, so the signal is polled between ticks.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			log.Info("shutting down on signal")
			return
		default:
		}
		if _, err := machine.Tick(nil); err != nil {
			log.Error("fatal trap, halting", "error", err, "pc", machine.CPU.PC)
			closer.Close()
			os.Exit(1)
		}
	}
}
