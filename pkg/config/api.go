package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CatalogAPIConfig points the console at the catalog REST API.
type CatalogAPIConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the catalog API configuration.
func (c *CatalogAPIConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Catalog API ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  timeout: %v\n", c.Timeout))
	return b.String()
}

// Validate checks the base URL is an absolute http(s) URL.
// A zero timeout leaves the transport defaults in place.
func (c *CatalogAPIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("catalog API base URL is not configured")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid catalog API base URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("catalog API base URL must use http or https: %s", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("catalog API base URL has no host: %s", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid catalog API timeout: %v", c.Timeout)
	}
	return nil
}
