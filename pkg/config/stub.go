package config

import (
	"fmt"
	"strings"
)

// StubConfig controls the in-process catalog API used for local development.
type StubConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

// String returns a string representation of the stub configuration.
func (c *StubConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Stub API ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  port: %d\n", c.Port))
	return b.String()
}

func (c *StubConfig) Validate() error {
	if c.Enabled && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid stub API port: %d", c.Port)
	}
	return nil
}
