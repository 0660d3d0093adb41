// Package record assembles the normalized output record for a detail page.
package record

import (
	"strings"
	"time"

	"github.com/BenjaminSRussell/odc_harvest/internal/faults"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

// Assemble builds the OutputRecord for one detail page.
//
// Title and category are required: if either element was absent the page is
// malformed and an ExtractionFault is returned instead of a record. Present
// values are trimmed. File links keep page order and duplicates, content is
// passed through untouched and enrichment is always left empty.
func Assemble(raw types.RawDetail, stamp types.ProvenanceHeaders, crawledAt time.Time) (types.OutputRecord, error) {
	if raw.Title == nil {
		return types.OutputRecord{}, &faults.ExtractionFault{URL: raw.URL, Field: "title"}
	}
	if raw.Category == nil {
		return types.OutputRecord{}, &faults.ExtractionFault{URL: raw.URL, Field: "category"}
	}

	links := make([]string, len(raw.FileLinks))
	copy(links, raw.FileLinks)

	metadata := raw.Metadata
	if metadata == nil {
		metadata = types.MetadataTable{}
	}

	return types.OutputRecord{
		URL:        raw.URL,
		Content:    raw.Content,
		Provenance: stamp,
		Enrichment: nil,
		FileMetadata: types.FileMetadata{
			Title:     strings.TrimSpace(*raw.Title),
			Category:  strings.TrimSpace(*raw.Category),
			FileLinks: links,
			Metadata:  metadata,
		},
		CrawledAt: crawledAt.UTC(),
	}, nil
}
