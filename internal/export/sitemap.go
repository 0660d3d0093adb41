package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/BenjaminSRussell/odc_harvest/internal/storage"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// SitemapConfig holds export configuration
type SitemapConfig struct {
	DataDir           string
	OutputFile        string
	IncludeLastmod    bool
	IncludeChangefreq bool
	DefaultPriority   float64
}

// DefaultSitemapConfig returns the settings used by Exporter.ExportSitemap
func DefaultSitemapConfig() SitemapConfig {
	return SitemapConfig{
		IncludeLastmod:    true,
		IncludeChangefreq: true,
		DefaultPriority:   0.8,
	}
}

// URLSet represents the XML sitemap structure
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL represents a single URL in the sitemap
type URL struct {
	Loc        string  `xml:"loc"`
	Lastmod    string  `xml:"lastmod,omitempty"`
	Changefreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

// ExportSitemap exports harvested records under config.DataDir to an XML sitemap
func ExportSitemap(config SitemapConfig) (int, error) {
	records, _, err := storage.LoadRecords(config.DataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load records: %w", err)
	}

	return writeSitemap(buildURLSet(records, config), config.OutputFile)
}

// buildURLSet lists each record URL once; a later record for the same URL
// replaces the earlier entry in place
func buildURLSet(records []types.OutputRecord, config SitemapConfig) URLSet {
	urlSet := URLSet{
		XMLNS: sitemapNamespace,
		URLs:  make([]URL, 0, len(records)),
	}
	index := make(map[string]int, len(records))

	for _, rec := range records {
		if rec.URL == "" {
			continue
		}

		u := URL{
			Loc:      rec.URL,
			Priority: config.DefaultPriority,
		}
		if config.IncludeLastmod && !rec.CrawledAt.IsZero() {
			u.Lastmod = rec.CrawledAt.UTC().Format(time.RFC3339)
		}
		if config.IncludeChangefreq {
			u.Changefreq = "weekly"
		}

		if i, ok := index[rec.URL]; ok {
			urlSet.URLs[i] = u
			continue
		}
		index[rec.URL] = len(urlSet.URLs)
		urlSet.URLs = append(urlSet.URLs, u)
	}

	return urlSet
}

func writeSitemap(urlSet URLSet, outputFile string) (int, error) {
	// Marshal to XML
	output, err := xml.MarshalIndent(urlSet, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal XML: %w", err)
	}

	// Add XML header
	xmlContent := []byte(xml.Header + string(output) + "\n")

	if err := os.WriteFile(outputFile, xmlContent, 0644); err != nil {
		return 0, fmt.Errorf("failed to write sitemap: %w", err)
	}

	return len(urlSet.URLs), nil
}
