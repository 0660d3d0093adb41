package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BenjaminSRussell/odc_harvest/internal/storage"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

func newStatsCommand(v *viper.Viper) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize records stored in SQLite",
		Long:  `Print record counts per category from the SQLite database written by crawl --enable-sqlite.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd); err != nil {
				return err
			}

			dbPath := filepath.Join(v.GetString("data-dir"), storage.SQLiteFile)
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no SQLite database at %s (run crawl with --enable-sqlite): %w", dbPath, err)
			}

			db, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total records: %d\n", stats["total_records"])

			categories := make([]string, 0, len(stats))
			for key := range stats {
				if name, ok := strings.CutPrefix(key, "category:"); ok {
					categories = append(categories, name)
				}
			}
			sort.Strings(categories)
			for _, name := range categories {
				fmt.Fprintf(out, "  %s: %d\n", name, stats["category:"+name])
			}
			return nil
		},
	}

	statsCmd.Flags().String("data-dir", types.DefaultConfig().DataDir, "data storage directory")
	return statsCmd
}
