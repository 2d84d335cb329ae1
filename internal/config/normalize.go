package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDistribution()
	c.normalizeSecrets()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.CredentialsDir, err = expandPath(c.Paths.CredentialsDir); err != nil {
		return fmt.Errorf("paths.credentials_dir: %w", err)
	}
	if c.Paths.SessionsDir, err = expandPath(c.Paths.SessionsDir); err != nil {
		return fmt.Errorf("paths.sessions_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if c.Paths.AdminToken == "" {
		if value, ok := os.LookupEnv("AIRLIFT_ADMIN_TOKEN"); ok {
			c.Paths.AdminToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeDistribution() {
	c.Distribution.Mode = strings.ToLower(strings.TrimSpace(c.Distribution.Mode))
	if c.Distribution.Mode == "" {
		c.Distribution.Mode = ModeDemo
	}
	if c.Distribution.LoginTimeout <= 0 {
		c.Distribution.LoginTimeout = defaultLoginTimeout
	}
	if c.Distribution.UploadTimeout <= 0 {
		c.Distribution.UploadTimeout = defaultUploadTimeout
	}
	c.Distribution.StatusEndpoint = strings.TrimSpace(c.Distribution.StatusEndpoint)
	if c.Distribution.StatusEndpoint == "" {
		c.Distribution.StatusEndpoint = "http://" + c.Paths.APIBind + "/api/status/summary"
	}

	normalized := make(map[string]bool, len(c.Distribution.Platforms))
	for name, enabled := range c.Distribution.Platforms {
		normalized[strings.ToLower(strings.TrimSpace(name))] = enabled
	}
	c.Distribution.Platforms = normalized
}

func (c *Config) normalizeSecrets() {
	c.Secrets.Backend = strings.ToLower(strings.TrimSpace(c.Secrets.Backend))
	if c.Secrets.Backend == "" {
		c.Secrets.Backend = BackendLocal
	}
	if c.Secrets.VaultAddress == "" {
		if value, ok := os.LookupEnv("VAULT_ADDR"); ok {
			c.Secrets.VaultAddress = value
		}
	}
	if c.Secrets.VaultToken == "" {
		if value, ok := os.LookupEnv("VAULT_TOKEN"); ok {
			c.Secrets.VaultToken = value
		}
	}
	c.Secrets.VaultAddress = strings.TrimRight(strings.TrimSpace(c.Secrets.VaultAddress), "/")
	if c.Secrets.VaultAddress == "" {
		c.Secrets.VaultAddress = defaultVaultAddress
	}
	if c.Secrets.RequestTimeout <= 0 {
		c.Secrets.RequestTimeout = defaultSecretsRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}
