package parser

import (
	"strings"

	"github.com/BenjaminSRussell/odc_harvest/internal/page"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

// ParseMetadataTable resolves label/value rows into a MetadataTable.
//
// The label is the trimmed text of the row's th cell (empty when there is
// none). Every text segment of every td cell is trimmed and empties are
// dropped; zero or one survivor collapses to a single string, more stay an
// ordered list. A repeated label overwrites the earlier row. Malformed rows
// are never rejected.
func ParseMetadataTable(rows []page.Node) types.MetadataTable {
	metadata := make(types.MetadataTable, len(rows))

	for _, row := range rows {
		label := ""
		if th, ok := page.First(row, "th"); ok {
			label = strings.TrimSpace(th.Text())
		}

		values := make([]string, 0)
		for _, td := range row.Select("td") {
			for _, text := range td.Strings() {
				if text = strings.TrimSpace(text); text != "" {
					values = append(values, text)
				}
			}
		}

		if len(values) <= 1 {
			metadata[label] = types.SingleValue(strings.Join(values, ""))
		} else {
			metadata[label] = types.ListValue(values...)
		}
	}

	return metadata
}
