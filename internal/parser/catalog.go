package parser

import (
	"strings"

	"github.com/BenjaminSRussell/odc_harvest/internal/page"
)

const (
	catalogItemSelector   = "li.dataset-item"
	catalogAnchorSelector = "div > h3 > a"
	paginationSelector    = "ul.pagination a"

	// nextGlyph is the visible text of the pagination "next" control
	nextGlyph = "»"
)

// CatalogItems returns the absolute detail URLs listed on a catalog page, in
// page order, and how many items had no usable href.
func CatalogItems(doc page.Document, baseURL string) ([]string, int) {
	links := make([]string, 0)
	skipped := 0

	for _, item := range doc.Select(catalogItemSelector) {
		anchor, ok := page.First(item, catalogAnchorSelector)
		if !ok {
			skipped++
			continue
		}

		href, ok := anchor.Attr("href")
		if !ok {
			skipped++
			continue
		}

		link := JoinBase(baseURL, href)
		if link == "" {
			skipped++
			continue
		}
		links = append(links, link)
	}

	return links, skipped
}

// NextPage finds the pagination link whose text is the next glyph and
// resolves it against the current page.
func NextPage(doc page.Document) (string, bool) {
	for _, a := range doc.Select(paginationSelector) {
		if !strings.Contains(a.Text(), nextGlyph) {
			continue
		}

		href, ok := a.Attr("href")
		if !ok {
			continue
		}

		if next := normalizeURL(strings.TrimSpace(href), doc.URL()); next != "" {
			return next, true
		}
	}

	return "", false
}
