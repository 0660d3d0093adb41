package parser

import (
	"github.com/BenjaminSRussell/odc_harvest/internal/page"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

const (
	titleSelector     = ".module-content > h1"
	categorySelector  = ".toolbar > ol > li ~ li > a"
	fileLinkSelector  = ".resource-url-analytics"
	contentSelector   = ".notes > p"
	metadataSelector  = ".additional-info > .table > tbody"
	metadataRowFilter = "tr"
)

// ExtractDetail pulls the raw fields of a dataset detail page. Missing
// elements are left nil; deciding whether that is fatal belongs to record
// assembly.
func ExtractDetail(doc page.Document) types.RawDetail {
	raw := types.RawDetail{
		URL:       doc.URL(),
		FileLinks: make([]string, 0),
	}

	if title, ok := firstOwnText(doc, titleSelector); ok {
		raw.Title = &title
	}

	if category, ok := firstOwnText(doc, categorySelector); ok {
		raw.Category = &category
	}

	for _, n := range doc.Select(fileLinkSelector) {
		if href, ok := n.Attr("href"); ok {
			raw.FileLinks = append(raw.FileLinks, href)
		}
	}

	if content, ok := firstOwnText(doc, contentSelector); ok {
		raw.Content = &content
	}

	rows := make([]page.Node, 0)
	for _, body := range doc.Select(metadataSelector) {
		for _, row := range body.Select(metadataRowFilter) {
			rows = append(rows, row)
		}
	}
	raw.Metadata = ParseMetadataTable(rows)

	return raw
}

// firstOwnText returns the first direct text node among the matches of
// selector. Text inside nested markup such as <span> badges is not part of
// the field.
func firstOwnText(doc page.Document, selector string) (string, bool) {
	for _, n := range doc.Select(selector) {
		if text, ok := n.OwnText(); ok {
			return text, true
		}
	}
	return "", false
}
