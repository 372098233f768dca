package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pasinskim/mender-mcp/config"
	"github.com/pasinskim/mender-mcp/mender"
	"github.com/pasinskim/mender-mcp/server"
)

var (
	cfgFile      string
	cfg          *config.Config
	logger       zerolog.Logger
	menderClient *mender.Client

	// Command flags
	serverURL   string
	accessToken string
	tokenFile   string

	appVersion = "dev"
	buildTime  = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mender-mcp",
	Short: "MCP server exposing read-only access to a Mender server",
	Long: `mender-mcp is a Model Context Protocol server that lets AI assistants
query a Mender IoT management server: device status, deployments, releases,
artifacts, inventory and audit logs. It speaks MCP over stdio and talks to
the Mender management API with a personal access token.`,
	PersistentPreRunE: initializeApp,
	RunE:              runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion records build metadata for the version template.
func SetVersion(version, built string) {
	appVersion = version
	buildTime = built
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, built)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "Mender server URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&accessToken, "access-token", "", "Mender personal access token (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", "", "file containing the access token (overrides config)")

	rootCmd.AddCommand(testCmd)
}

// initializeApp loads configuration and builds the Mender client.
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	// Command line overrides take precedence over file and environment.
	if cmd.Flags().Changed("server-url") {
		cfg.Mender.ServerURL = serverURL
	}
	if cmd.Flags().Changed("access-token") {
		cfg.Mender.AccessToken = accessToken
	}
	if cmd.Flags().Changed("token-file") {
		cfg.Mender.TokenFile = tokenFile
	}

	token, err := cfg.ResolveToken()
	if err != nil {
		return fmt.Errorf("failed to resolve access token: %w", err)
	}
	if token == "" {
		return fmt.Errorf("no access token provided: use --access-token, --token-file, " +
			"the MENDER_ACCESS_TOKEN environment variable, or mender.access_token in the config file")
	}

	menderClient, err = mender.NewClient(cfg.Mender.ServerURL, token, logger,
		mender.WithTimeout(time.Duration(cfg.Mender.TimeoutSeconds)*time.Second),
		mender.WithDeploymentLogPaths(cfg.Mender.DeploymentLogPaths.V2, cfg.Mender.DeploymentLogPaths.V1),
	)
	if err != nil {
		return fmt.Errorf("failed to create Mender client: %w", err)
	}

	return nil
}

// setupLogger configures the zerolog logger. Output always goes to stderr
// so it never corrupts the MCP stdio stream.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("version", appVersion).
		Str("server_url", cfg.Mender.ServerURL).
		Msg("Starting MCP server on stdio")

	srv := server.New(menderClient, appVersion, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("MCP server exited: %w", err)
	}

	return nil
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to the Mender server",
	Long:  `Test the connection to your Mender server and display basic information.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to Mender at %s...\n", cfg.Mender.ServerURL)

	ctx := cmd.Context()
	devices, err := menderClient.ListDevices(ctx, mender.ListDevicesOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to reach the device authentication API: %w", err)
	}

	fmt.Println("✓ Connection successful!")

	deployments, err := menderClient.ListDeployments(ctx, mender.ListDeploymentsOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to reach the deployments API: %w", err)
	}

	fmt.Printf("\nMender APIs reachable:\n")
	fmt.Printf("- Device authentication: %s\n", reachableStatus(len(devices) > 0))
	fmt.Printf("- Deployments: %s\n", reachableStatus(len(deployments) > 0))

	return nil
}

func reachableStatus(hasData bool) string {
	if hasData {
		return "reachable (data present)"
	}
	return "reachable (no entries)"
}
