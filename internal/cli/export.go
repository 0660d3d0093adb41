package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BenjaminSRussell/odc_harvest/internal/export"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

var defaultOutputs = map[string]string{
	export.FormatJSON:    "records.json",
	export.FormatCSV:     "records.csv",
	export.FormatSitemap: "sitemap.xml",
}

func newExportCommand(v *viper.Viper) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export harvested records",
		Long:  `Export the records in the data directory to JSON, CSV or an XML sitemap of dataset pages.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(v, cmd); err != nil {
				return err
			}

			dataDir := v.GetString("data-dir")
			format := strings.ToLower(v.GetString("export-format"))
			outputFile := v.GetString("output")

			defaultOutput, ok := defaultOutputs[format]
			if !ok {
				return fmt.Errorf("unsupported export format %q", format)
			}
			if outputFile == "" {
				outputFile = defaultOutput
			}

			var (
				count int
				err   error
			)
			if format == export.FormatSitemap {
				count, err = export.ExportSitemap(export.SitemapConfig{
					DataDir:           dataDir,
					OutputFile:        outputFile,
					IncludeLastmod:    v.GetBool("include-lastmod"),
					IncludeChangefreq: v.GetBool("include-changefreq"),
					DefaultPriority:   v.GetFloat64("default-priority"),
				})
			} else {
				var exporter *export.Exporter
				exporter, err = export.NewExporter(filepath.Dir(outputFile))
				if err == nil {
					count, err = exporter.Export(dataDir, format, filepath.Base(outputFile))
				}
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully exported %d records to %s\n", count, outputFile)
			return nil
		},
	}

	sitemap := export.DefaultSitemapConfig()

	flags := exportCmd.Flags()
	flags.String("data-dir", types.DefaultConfig().DataDir, "data storage directory")
	flags.String("export-format", export.FormatJSON, "output format: json, csv or sitemap")
	flags.String("output", "", "output file path (default depends on the format)")
	flags.Bool("include-lastmod", sitemap.IncludeLastmod, "include lastmod in sitemap")
	flags.Bool("include-changefreq", sitemap.IncludeChangefreq, "include changefreq in sitemap")
	flags.Float64("default-priority", sitemap.DefaultPriority, "sitemap priority value")

	return exportCmd
}
