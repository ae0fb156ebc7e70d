package config

import (
	"fmt"
	"net"
)

// Validate checks configuration invariants that normalization cannot repair.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.APIBind != "" {
		if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
			return fmt.Errorf("config: api_bind %q is not host:port: %w", c.Paths.APIBind, err)
		}
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Size > 10000 {
		return fmt.Errorf("config: batch size %d is unreasonably large", c.Batch.Size)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: logging format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
