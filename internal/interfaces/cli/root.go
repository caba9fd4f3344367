// Package cli implements the kybctl command tree: operator commands for
// triggering checks, inspecting reports, working alerts, and migrating the
// database.  Commands talk to the backing stores directly; there is no API
// server between kybctl and the engine's data.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/KYB-Sentinel/internal/config"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/postgres"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/database/redis"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath   string
	OutputFormat string
	Timeout      time.Duration
}

// NewRootCommand builds the kybctl root with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "kybctl",
		Short:   "KYB-Sentinel CLI — operate the counterparty monitoring engine",
		Long:    "kybctl triggers check cycles, prints tenant monitoring reports,\nworks the alert queue, and runs database migrations.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to the configuration file")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "operation timeout")

	cmd.AddCommand(
		NewCheckNowCmd(opts),
		NewReportCmd(opts),
		NewAlertsCmd(opts),
		NewMigrateCmd(opts),
	)
	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// runtime bundles the infrastructure a command needs.  Commands build it
// lazily inside RunE so --help and flag errors never touch the network.
type runtime struct {
	Config   *config.Config
	Logger   logging.Logger
	Postgres *postgres.Connection
	Redis    *redis.Client
	Producer *kafka.Producer
}

// newRuntime loads configuration and connects the backing stores.
func newRuntime(opts *RootOptions) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	// CLI output goes to stdout; keep the structured log quiet unless the
	// operator turned it up in the config file.
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger = logger.Named("kybctl")

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &runtime{
		Config:   cfg,
		Logger:   logger,
		Postgres: conn,
		Redis:    redisClient,
		Producer: kafka.NewProducer(cfg.Kafka, logger),
	}, nil
}

// Close releases every connection the runtime holds.
func (r *runtime) Close() {
	if r.Producer != nil {
		_ = r.Producer.Close()
	}
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if r.Postgres != nil {
		_ = r.Postgres.Close()
	}
}

// printResult renders v as indented JSON or hands it to the text renderer.
func printResult(opts *RootOptions, v any, text func() string) error {
	switch opts.OutputFormat {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	case "text":
		fmt.Print(text())
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", opts.OutputFormat)
	}
}

func printSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}
