package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDistribution(); err != nil {
		return err
	}
	if err := c.validateSecrets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDistribution() error {
	switch c.Distribution.Mode {
	case ModeDemo, ModeLive:
	default:
		return fmt.Errorf("distribution.mode must be %q or %q, got %q", ModeDemo, ModeLive, c.Distribution.Mode)
	}
	for name := range c.Distribution.Platforms {
		if !slices.Contains(KnownPlatforms, name) {
			return fmt.Errorf("distribution.platforms: unknown platform %q", name)
		}
	}
	return nil
}

func (c *Config) validateSecrets() error {
	switch c.Secrets.Backend {
	case BackendLocal:
	case BackendVault:
		if c.Secrets.VaultToken == "" {
			return errors.New("secrets.vault_token is required when secrets.backend is \"vault\" (or set VAULT_TOKEN)")
		}
	default:
		return fmt.Errorf("secrets.backend must be %q or %q, got %q", BackendLocal, BackendVault, c.Secrets.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
