package types

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://data.opendevelopmentcambodia.net"
	DefaultLanguage = "km"
	DefaultFormat   = "PDF"

	// catalog ordering: relevance first, then most recently modified
	catalogSort = "score desc, metadata_modified desc"
)

// Config holds crawler configuration
type Config struct {
	BaseURL    string
	Language   string
	Format     string
	LedgerPath string
	DataDir    string
	Workers    int
	Timeout    time.Duration
	UserAgent  string

	IgnoreRobots      bool
	EnableJSRendering bool
	EnableSQLite      bool
}

// DefaultConfig returns a Config pointed at the Khmer-language PDF catalog
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Language:   DefaultLanguage,
		Format:     DefaultFormat,
		DataDir:    "./data",
		LedgerPath: "./data/visited_urls.txt",
		Workers:    8,
		Timeout:    30 * time.Second,
	}
}

// StartURL builds the first catalog page URL from the base domain and filters
func (c Config) StartURL() string {
	base := strings.TrimRight(c.BaseURL, "/")
	return fmt.Sprintf("%s/%s/dataset/?odm_language_list=%s&res_format=%s&q=&sort=%s",
		base,
		url.PathEscape(c.Language),
		url.QueryEscape(c.Language),
		url.QueryEscape(c.Format),
		url.QueryEscape(catalogSort),
	)
}

// Results contains crawl statistics
type Results struct {
	ListPages        int
	Discovered       int
	Skipped          int
	Dispatched       int
	Emitted          int
	FetchErrors      int
	ExtractionFaults int
	LedgerFaults     int
	EmitErrors       int
	Panics           int
}

// MetadataValue is one resolved cell of the additional-info table: either a
// single string or an ordered list of strings.
type MetadataValue struct {
	Text   string
	Values []string
}

// SingleValue wraps a collapsed cell value
func SingleValue(s string) MetadataValue {
	return MetadataValue{Text: s}
}

// ListValue wraps a multi-valued cell, keeping source order
func ListValue(values ...string) MetadataValue {
	out := make([]string, len(values))
	copy(out, values)
	return MetadataValue{Values: out}
}

// IsList reports whether the value holds more than one string
func (v MetadataValue) IsList() bool {
	return v.Values != nil
}

func (v MetadataValue) String() string {
	if v.IsList() {
		return strings.Join(v.Values, ", ")
	}
	return v.Text
}

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	if v.IsList() {
		return json.Marshal(v.Values)
	}
	return json.Marshal(v.Text)
}

func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = SingleValue(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("metadata value must be a string or a list of strings: %w", err)
	}
	*v = ListValue(list...)
	return nil
}

// MetadataTable maps a table label to its resolved value
type MetadataTable map[string]MetadataValue

// ProvenanceHeaders is the opaque capture stamp attached to each record
type ProvenanceHeaders map[string]string

// Enrichment is the slot for downstream classification; never populated here
type Enrichment struct {
	Labels map[string]float64 `json:"labels,omitempty"`
}

// FileMetadata describes one catalog document
type FileMetadata struct {
	Title     string        `json:"title"`
	Category  string        `json:"category"`
	FileLinks []string      `json:"pdf_links"`
	Metadata  MetadataTable `json:"additional_data"`
}

// OutputRecord is the unit emitted downstream for each detail page
type OutputRecord struct {
	URL          string            `json:"url"`
	Content      *string           `json:"content"`
	Provenance   ProvenanceHeaders `json:"provenance"`
	Enrichment   *Enrichment       `json:"enrichment"`
	FileMetadata FileMetadata      `json:"file_metadata"`
	CrawledAt    time.Time         `json:"crawled_at"`
}

// RawDetail is what extraction finds on a detail page before assembly.
// Nil pointers mean the element was absent from the markup.
type RawDetail struct {
	URL       string
	Title     *string
	Category  *string
	FileLinks []string
	Metadata  MetadataTable
	Content   *string
}
