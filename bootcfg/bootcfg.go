// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bootcfg parses the /boot.cfg configuration file, grounded on the
// original firmware's core/config.c: simple "key = value" lines, "#"
// comments, blank lines, and a fixed set of recognized keys with tolerant
// handling of anything else. It stays hand-rolled on bufio.Scanner and
// strings rather than reaching for a YAML/TOML library, because no example
// in the retrieval pack carries a generic key=value config parser and
// pulling one in would change the wire format the boot.cfg grammar pins
// down (see DESIGN.md).
package bootcfg

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/milkmanabi/mimiboot/mimierr"
)

const (
	defaultTimeoutSeconds = 3
	defaultBaudRate       = 115200
	defaultMaxRetries     = 3
)

// Config is the parsed contents of /boot.cfg, matching mimi_config_t's
// fields and defaults exactly.
type Config struct {
	Image       string
	Fallback    string
	Timeout     int
	Delay       bool
	BaudRate    int
	Verbose     bool
	Quiet       bool
	Verify      bool
	ResetOnFail bool
	MaxRetries  int

	// BootCount is not part of the on-disk grammar; it is carried here for
	// convenience by callers that want to thread config and attempt count
	// through the same value, but package boot treats the authoritative
	// counter as its own state (see the Open Question resolution in
	// DESIGN.md).
	BootCount int
}

// Default returns a Config populated with mimi_config_init's defaults.
func Default() Config {
	return Config{
		Image:      "/kernel.bin",
		Timeout:    defaultTimeoutSeconds,
		BaudRate:   defaultBaudRate,
		MaxRetries: defaultMaxRetries,
	}
}

var truthyTokens = map[string]bool{
	"1": true, "true": true, "yes": true, "on": true,
}

func parseBool(v string) bool {
	return truthyTokens[strings.ToLower(strings.TrimSpace(v))]
}

// Parse reads boot.cfg grammar line by line from data, starting from
// Default() and overriding recognized keys, mirroring mimi_config_parse's
// per-line dispatch in parse_line.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			continue // unparseable line, tolerated
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])

		switch key {
		case "image":
			cfg.Image = value
		case "fallback":
			cfg.Fallback = value
		case "timeout":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.Timeout = n
			}
		case "delay":
			cfg.Delay = parseBool(value)
		case "baudrate", "baud":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.BaudRate = n
			}
		case "verbose":
			cfg.Verbose = parseBool(value)
		case "quiet":
			cfg.Quiet = parseBool(value)
			if cfg.Quiet {
				cfg.Verbose = false
			}
		case "verify":
			cfg.Verify = parseBool(value)
		case "reset_on_fail":
			cfg.ResetOnFail = parseBool(value)
		case "max_retries", "retries":
			if n, err := strconv.Atoi(value); err == nil {
				cfg.MaxRetries = n
			}
		default:
			// unknown keys are tolerated, matching the original's silent skip
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, mimierr.New(mimierr.KindConfig, err, "scan boot.cfg")
	}
	return cfg, nil
}

// ConfigReader is the minimal file contract Load reads boot.cfg through; a
// *fat32.File satisfies it.
type ConfigReader interface {
	Read(p []byte) (int, error)
	Size() uint32
}

const maxConfigSize = 2048

// Load reads up to maxConfigSize bytes from r and parses them, mirroring
// mimi_config_load's fixed-size read buffer.
func Load(r ConfigReader) (Config, error) {
	size := r.Size()
	if size > maxConfigSize {
		size = maxConfigSize
	}
	buf := make([]byte, size)
	if _, err := r.Read(buf); err != nil {
		return Default(), mimierr.New(mimierr.KindConfig, err, "read boot.cfg")
	}
	return Parse(buf)
}

// SelectImage returns the fallback image if bootCount has reached
// MaxRetries, otherwise the primary image, mirroring
// mimi_config_get_image's retry/fallback switch.
func (c Config) SelectImage(bootCount int) string {
	if c.Fallback != "" && bootCount >= c.MaxRetries {
		return c.Fallback
	}
	return c.Image
}
