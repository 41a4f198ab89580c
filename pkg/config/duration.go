package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a time.Duration written in TOML as "30s" or "2m". The words
// "off" and "none", like an empty string, mean zero: no limit.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	switch strings.ToLower(s) {
	case "", "0", "off", "none":
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q not allowed", s)
	}
	d.Duration = parsed
	return nil
}

// MarshalText writes zero as "off" so a dumped config reads back unchanged.
func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return []byte("off"), nil
	}
	return []byte(d.Duration.String()), nil
}
