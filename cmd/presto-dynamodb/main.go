// Command presto-dynamodb manages table stores and reads them through the
// dynamodb connector.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jugaji/presto-dynamodb/pkg/common/log"
	"github.com/jugaji/presto-dynamodb/pkg/config"
	"github.com/jugaji/presto-dynamodb/pkg/store"

	// store drivers and connector registration
	_ "github.com/jugaji/presto-dynamodb/pkg/dynamodb"
)

const CmdRoot = "presto-dynamodb"

// globalFlags are shared by every command
type globalFlags struct {
	configFile string
	driver     string
	dsn        string
	schema     string
	logLevel   string
}

var flags globalFlags

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           CmdRoot,
		Short:         "DynamoDB-style table store connector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Configuration file (properties, yaml, json or toml)")
	pf.StringVar(&flags.driver, "driver", "", "Store driver: badger, pebble or remote")
	pf.StringVar(&flags.dsn, "dsn", "", "Store location: a directory, :memory: or host:port for remote")
	pf.StringVar(&flags.schema, "schema", "", "Schema name exposed by the connector")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newServeCmd(),
		newCreateTableCmd(),
		newTablesCmd(),
		newDescribeCmd(),
		newLoadCmd(),
		newQueryCmd(),
		newShellCmd(),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, if any, and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if flags.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(flags.configFile); err != nil {
			return nil, err
		}
	}

	pf := cmd.Flags()
	if pf.Changed("driver") {
		cfg.StoreDriver = flags.driver
	}
	if pf.Changed("dsn") {
		cfg.StoreDSN = flags.dsn
	}
	if pf.Changed("schema") {
		cfg.SchemaName = flags.schema
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates the command logger. Callers Sync it before exiting.
func newLogger(cfg *config.Config) *log.ZapLogger {
	level, _ := log.ParseLevel(cfg.LogLevel)
	return log.NewLogger(log.WithLevel(level), log.WithOutput(os.Stderr))
}

// openStore opens the configured store
func openStore(cfg *config.Config, logger log.Logger) (store.Store, error) {
	st, err := store.Open(cfg.StoreDriver, cfg.StoreDSN, store.Options{
		Compression: cfg.Compression,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store at %s: %w", cfg.StoreDriver, cfg.StoreDSN, err)
	}
	return st, nil
}

// withStore runs fn against the configured store and closes it afterwards
func withStore(cmd *cobra.Command, fn func(cfg *config.Config, st store.Store, logger log.Logger) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Sync()

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(cfg, st, logger)
}
