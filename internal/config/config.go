// Package config holds the configuration of the catalog admin console.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/abgdnv/catalogadmin/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	API        config.CatalogAPIConfig `koanf:"api"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Events     struct {
		Nats config.NATSConfig `koanf:"nats"`
	} `koanf:"events"`
	Stub config.StubConfig `koanf:"stub"`
}

// Defaults are the values used when neither the YAML file nor the environment sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxHeaderBytes":     1 << 20,
		"server.timeout.read":       5 * time.Second,
		"server.timeout.write":      10 * time.Second,
		"server.timeout.idle":       120 * time.Second,
		"server.timeout.readHeader": 2 * time.Second,

		"api.baseurl": "http://localhost:8000/api/products",
		"api.timeout": time.Duration(0),

		"resilience.circuitbreaker.enabled":             true,
		"resilience.circuitbreaker.consecutivefailures": 5,
		"resilience.circuitbreaker.errorratepercent":    50,
		"resilience.circuitbreaker.opentimeout":         30 * time.Second,
		"resilience.circuitbreaker.halfopenrequests":    1,

		"log.level":  "info",
		"log.format": "json",

		"pprof.enabled": false,
		"pprof.addr":    "localhost:6060",

		"shutdown.timeout": 10 * time.Second,

		"telemetry.traces.otlphttp.timeout": 5 * time.Second,
		"telemetry.metrics.enabled":         true,
		"telemetry.metrics.path":            "/metrics",

		"events.nats.stream":  "CATALOG",
		"events.nats.timeout": 5 * time.Second,

		"stub.enabled": false,
		"stub.port":    8000,
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.API.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Events.Nats.String())
	b.WriteString(c.Stub.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.API,
		&c.Resilience,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
		&c.Telemetry,
		&c.Events.Nats,
		&c.Stub,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Stub.Enabled && c.Stub.Port == c.HTTPServer.Port {
		return fmt.Errorf("stub API port %d collides with the console port", c.Stub.Port)
	}
	return nil
}
