package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load loads the configuration from file. The file is optional: the token
// can come from flags or the environment, so a missing config file falls
// back to defaults rather than failing.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// The access token can always come from the environment.
	if err := v.BindEnv("mender.access_token", "MENDER_ACCESS_TOKEN"); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mender-mcp"))
		}

		// Check /etc
		v.AddConfigPath("/etc/mender-mcp/")
	}

	// Read config file. An explicitly named file must exist; an absent file
	// in the search path just means defaults plus flags and environment.
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if configPath != "" || !notFound {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Mender defaults
	v.SetDefault("mender.server_url", "https://hosted.mender.io")
	v.SetDefault("mender.timeout_seconds", 30)
	v.SetDefault("mender.deployment_log_paths.v2", "/api/management/v2/deployments/deployments/%s/devices/%s/log")
	v.SetDefault("mender.deployment_log_paths.v1", "/api/management/v1/deployments/deployments/%s/devices/%s/log")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Mender.ServerURL == "" {
		return fmt.Errorf("mender.server_url is required")
	}
	parsed, err := url.Parse(cfg.Mender.ServerURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("mender.server_url must be an http(s) URL")
	}

	if cfg.Mender.TimeoutSeconds <= 0 {
		return fmt.Errorf("mender.timeout_seconds must be positive")
	}

	for _, tmpl := range []string{cfg.Mender.DeploymentLogPaths.V2, cfg.Mender.DeploymentLogPaths.V1} {
		if strings.Count(tmpl, "%s") != 2 {
			return fmt.Errorf("deployment log path template %q must contain two %%s placeholders", tmpl)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// ResolveToken returns the access token, consulting the configured value
// first and the token file second. The empty result means no token was
// provided through any source.
func (c *Config) ResolveToken() (string, error) {
	if c.Mender.AccessToken != "" {
		return c.Mender.AccessToken, nil
	}

	if c.Mender.TokenFile != "" {
		path := c.Mender.TokenFile
		if strings.HasPrefix(path, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot expand token file path: %w", err)
			}
			path = filepath.Join(home, path[2:])
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("cannot read token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", path)
		}
		return token, nil
	}

	return "", nil
}
