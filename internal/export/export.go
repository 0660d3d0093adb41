package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BenjaminSRussell/odc_harvest/internal/storage"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

// Supported export formats
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatSitemap = "sitemap"
)

// linkSeparator joins file links inside one CSV cell
const linkSeparator = "|"

type Exporter struct {
	outputDir string
}

func NewExporter(outputDir string) (*Exporter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Exporter{
		outputDir: outputDir,
	}, nil
}

// Export loads the records stored under dataDir and writes them in format to
// outputFile, which is relative to the exporter's directory unless absolute.
// It returns the number of exported records.
func (e *Exporter) Export(dataDir, format, outputFile string) (int, error) {
	records, _, err := storage.LoadRecords(dataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load records: %w", err)
	}

	records = latestByURL(records)

	if !filepath.IsAbs(outputFile) {
		outputFile = filepath.Join(e.outputDir, outputFile)
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		return len(records), e.ExportJSON(records, outputFile)
	case FormatCSV:
		return len(records), e.ExportCSV(records, outputFile)
	case FormatSitemap:
		return e.ExportSitemap(records, outputFile)
	default:
		return 0, fmt.Errorf("unsupported export format %q", format)
	}
}

// latestByURL keeps one record per URL. A record harvested again (after an
// interrupted emit) replaces the earlier one at its first position.
func latestByURL(records []types.OutputRecord) []types.OutputRecord {
	out := make([]types.OutputRecord, 0, len(records))
	index := make(map[string]int, len(records))

	for _, rec := range records {
		if i, ok := index[rec.URL]; ok && rec.URL != "" {
			out[i] = rec
			continue
		}
		index[rec.URL] = len(out)
		out = append(out, rec)
	}

	return out
}

func (e *Exporter) ExportJSON(records []types.OutputRecord, outputFile string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

func (e *Exporter) ExportCSV(records []types.OutputRecord, outputFile string) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	headers := []string{"URL", "Title", "Category", "FileLinkCount", "FileLinks", "CrawledAt"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.URL,
			rec.FileMetadata.Title,
			rec.FileMetadata.Category,
			strconv.Itoa(len(rec.FileMetadata.FileLinks)),
			strings.Join(rec.FileMetadata.FileLinks, linkSeparator),
			rec.CrawledAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return nil
}

// ExportSitemap writes the detail page URLs as an XML sitemap
func (e *Exporter) ExportSitemap(records []types.OutputRecord, outputFile string) (int, error) {
	return writeSitemap(buildURLSet(records, DefaultSitemapConfig()), outputFile)
}
