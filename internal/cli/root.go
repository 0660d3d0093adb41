// Package cli implements the odc-harvest command line.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BenjaminSRussell/odc_harvest/internal/logger"
)

// envPrefix namespaces environment overrides, e.g. ODC_WORKERS=4
const envPrefix = "ODC"

// Execute runs the root command
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// NewRootCommand builds the command tree around a fresh viper instance.
// Settings resolve as flag, then ODC_* environment, then config file, then
// the flag default.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "odc-harvest",
		Short: "Harvest dataset records from the Open Development Cambodia catalog",
		Long: `odc-harvest walks the Open Development Cambodia dataset catalog page by page,
extracts each dataset's title, category, file links and metadata table, and
appends one JSON record per dataset to the data directory. Datasets recorded in
the visited ledger are skipped, so an interrupted run can simply be restarted.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (YAML, JSON or TOML)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "console", "log encoding: console or json")
	flags.Bool("debug", false, "enable debug logging with development output")
	mustBindFlags(v, flags)

	rootCmd.AddCommand(newCrawlCommand(v))
	rootCmd.AddCommand(newExportCommand(v))
	rootCmd.AddCommand(newStatsCommand(v))

	return rootCmd
}

// initConfig reads in the config file and ENV variables if set
func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfgFile := v.GetString("config")
	if cfgFile == "" {
		return nil
	}

	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}
	return nil
}

// bindFlags binds a command's own flags. Subcommands share key names such as
// data-dir, so binding happens when the command runs rather than at
// construction.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

func mustBindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	if err := v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("failed to bind persistent flags: %v", err))
	}
}

// newLogger builds the run logger from the log-* settings
func newLogger(v *viper.Viper) (logger.Interface, error) {
	config := logger.Config{
		Level:       v.GetString("log-level"),
		Encoding:    v.GetString("log-format"),
		Development: v.GetBool("debug"),
	}
	if config.Development {
		config.Level = "debug"
	}

	log, err := logger.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}
