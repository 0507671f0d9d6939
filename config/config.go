/*
 * rv64emu - Configuration file parser
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

// Package config reads the small line-oriented configuration file
// cmd/rv64emu accepts: one "key value" pair per line, '#' starts a
// comment to end of line, blank lines ignored. The grammar is a
// drastically reduced form of the teacher's config/configparser model
// line grammar -- this core has no device models to parse, only a
// handful of boot-time scalars.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds every boot-time setting the host driver needs before
// constructing a VM.
type Config struct {
	RAMSize   uint64 // bytes
	ImagePath string // flat binary loaded at RAM_BASE
	LogPath   string
	LogLevel  slog.Level
	Debug     bool
	MTVec     uint64 // initial machine trap vector, 0 leaves it unconfigured
}

// Default returns the configuration cmd/rv64emu uses when no config
// file is given: 64MiB of RAM, no image, stderr-only logging at info
// level.
func Default() *Config {
	return &Config{
		RAMSize:  64 * 1024 * 1024,
		LogLevel: slog.LevelInfo,
	}
}

// Load reads path and overlays recognized keys onto Default().
// Unrecognized keys are reported as errors rather than silently
// ignored, the way the teacher's parser rejects an unknown model name.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("config line %d: expected \"key value\", got %q", lineNumber, line)
		}
		if err := cfg.set(fields[0], fields[1]); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) set(key, value string) error {
	switch strings.ToLower(key) {
	case "ramsize":
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return err
		}
		c.RAMSize = n
	case "image":
		c.ImagePath = value
	case "logfile":
		c.LogPath = value
	case "loglevel":
		lvl, err := parseLevel(value)
		if err != nil {
			return err
		}
		c.LogLevel = lvl
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.Debug = b
	case "mtvec":
		n, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return err
		}
		c.MTVec = n
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
