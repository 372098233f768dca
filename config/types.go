package config

// Config represents the complete configuration structure
type Config struct {
	Mender  MenderConfig  `mapstructure:"mender"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MenderConfig holds Mender server connection details
type MenderConfig struct {
	ServerURL          string             `mapstructure:"server_url"`
	AccessToken        string             `mapstructure:"access_token"`
	TokenFile          string             `mapstructure:"token_file"`
	TimeoutSeconds     int                `mapstructure:"timeout_seconds"`
	DeploymentLogPaths DeploymentLogPaths `mapstructure:"deployment_log_paths"`
}

// DeploymentLogPaths overrides the deployment log endpoint templates. The
// exact paths vary between platform versions, so they are configuration
// rather than contract. Each template takes deployment ID then device ID.
type DeploymentLogPaths struct {
	V2 string `mapstructure:"v2"`
	V1 string `mapstructure:"v1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
