package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BenjaminSRussell/odc_harvest/internal/crawler"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

const ledgerFile = "visited_urls.txt"

func newCrawlCommand(v *viper.Viper) *cobra.Command {
	defaults := types.DefaultConfig()

	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvest every dataset listed in the catalog",
		Long: `Start at the first catalog page for the configured language and resource
format, follow the "next" pagination link until it disappears, and emit a
record for every dataset page not already in the visited ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd); err != nil {
				return err
			}

			log, err := newLogger(v)
			if err != nil {
				return err
			}
			defer log.Sync()

			config := configFromViper(v)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := crawler.NewFromConfig(config, log)
			if err != nil {
				return fmt.Errorf("failed to create crawler: %w", err)
			}
			defer c.Close()

			results, err := c.Crawl(ctx)
			printSummary(cmd.OutOrStdout(), results)

			if err != nil {
				if errors.Is(err, context.Canceled) {
					log.Warn("Crawl interrupted, unfinished pages will be picked up by the next run")
					return nil
				}
				return fmt.Errorf("crawl failed: %w", err)
			}
			return nil
		},
	}

	flags := crawlCmd.Flags()
	flags.String("base-url", defaults.BaseURL, "catalog domain")
	flags.String("language", defaults.Language, "catalog language filter")
	flags.String("format", defaults.Format, "resource format filter")
	flags.Int("workers", defaults.Workers, "number of concurrent detail page workers")
	flags.Duration("timeout", defaults.Timeout, "per-request timeout")
	flags.String("data-dir", defaults.DataDir, "data storage directory")
	flags.String("ledger", "", "visited ledger path (default <data-dir>/"+ledgerFile+")")
	flags.String("user-agent", "", "User-Agent header for catalog requests")
	flags.Bool("ignore-robots", false, "ignore robots.txt")
	flags.Bool("enable-js-rendering", false, "render script-driven pages with headless Chrome")
	flags.Bool("enable-sqlite", false, "also store records in a queryable SQLite database")

	return crawlCmd
}

// configFromViper resolves the crawl settings
func configFromViper(v *viper.Viper) types.Config {
	dataDir := v.GetString("data-dir")
	ledgerPath := v.GetString("ledger")
	if ledgerPath == "" {
		ledgerPath = filepath.Join(dataDir, ledgerFile)
	}

	return types.Config{
		BaseURL:           v.GetString("base-url"),
		Language:          v.GetString("language"),
		Format:            v.GetString("format"),
		LedgerPath:        ledgerPath,
		DataDir:           dataDir,
		Workers:           v.GetInt("workers"),
		Timeout:           v.GetDuration("timeout"),
		UserAgent:         v.GetString("user-agent"),
		IgnoreRobots:      v.GetBool("ignore-robots"),
		EnableJSRendering: v.GetBool("enable-js-rendering"),
		EnableSQLite:      v.GetBool("enable-sqlite"),
	}
}

func printSummary(w io.Writer, results *types.Results) {
	if results == nil {
		return
	}

	fmt.Fprintf(w, "Crawl completed!\n")
	fmt.Fprintf(w, "Catalog pages: %d, Discovered: %d, Skipped: %d, Emitted: %d\n",
		results.ListPages, results.Discovered, results.Skipped, results.Emitted)
	fmt.Fprintf(w, "Fetch errors: %d, Malformed pages: %d, Emit errors: %d, Ledger errors: %d, Panics: %d\n",
		results.FetchErrors, results.ExtractionFaults, results.EmitErrors, results.LedgerFaults, results.Panics)
}
