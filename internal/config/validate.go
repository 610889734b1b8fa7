package config

import (
	"fmt"
	"net/netip"
	"path"
	"strings"
)

// Validate checks business rules that tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}
	for _, p := range c.Server.TrustedProxies {
		if err := checkAddrOrPrefix(p); err != nil {
			return fmt.Errorf("server.trusted_proxies: %w", err)
		}
	}
	for _, o := range c.Server.AllowedOrigins {
		if o == "*" {
			return fmt.Errorf("server.allowed_origins: \"*\" would accept any site")
		}
		if _, err := path.Match(strings.ToLower(o), ""); err != nil {
			return fmt.Errorf("server.allowed_origins: bad pattern %q: %w", o, err)
		}
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.MaxFailures <= 0 {
		return fmt.Errorf("auth.max_failures must be > 0 (got %d)", c.Auth.MaxFailures)
	}
	if c.Auth.FailureWindow <= 0 {
		return fmt.Errorf("auth.failure_window must be > 0")
	}
	if err := c.Prediction.Policy().Validate(); err != nil {
		return fmt.Errorf("prediction: %w", err)
	}
	if c.Prediction.DefaultLowStockThreshold < 0 {
		return fmt.Errorf("prediction.default_low_stock_threshold must be >= 0 (got %d)", c.Prediction.DefaultLowStockThreshold)
	}
	return nil
}

func checkAddrOrPrefix(s string) error {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err
	}
	_, err := netip.ParseAddr(s)
	return err
}
