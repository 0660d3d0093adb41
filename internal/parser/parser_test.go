package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminSRussell/odc_harvest/internal/page"
	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

const base = "https://data.opendevelopmentcambodia.net"

func mustDoc(t *testing.T, html, url string) page.Document {
	t.Helper()
	doc, err := page.FromString(html, url)
	require.NoError(t, err)
	return doc
}

func tableRows(t *testing.T, rows string) []page.Node {
	t.Helper()
	doc := mustDoc(t, "<table><tbody>"+rows+"</tbody></table>", "")
	return doc.Select("tr")
}

func TestParseMetadataTableSingleValue(t *testing.T) {
	got := ParseMetadataTable(tableRows(t, `<tr><th> Year </th><td> 2001 </td></tr>`))
	assert.Equal(t, types.MetadataTable{"Year": types.SingleValue("2001")}, got)
	assert.False(t, got["Year"].IsList())
}

func TestParseMetadataTableEmptyValue(t *testing.T) {
	got := ParseMetadataTable(tableRows(t, `<tr><th>Source</th><td>   </td><td></td></tr>`))
	assert.Equal(t, types.MetadataTable{"Source": types.SingleValue("")}, got)
}

func TestParseMetadataTableNoValueCells(t *testing.T) {
	got := ParseMetadataTable(tableRows(t, `<tr><th>Empty</th></tr>`))
	assert.Equal(t, types.SingleValue(""), got["Empty"])
}

func TestParseMetadataTableList(t *testing.T) {
	got := ParseMetadataTable(tableRows(t, `<tr><th>Tags</th><td>Tag A</td><td> </td><td>Tag B</td></tr>`))
	assert.Equal(t, types.MetadataTable{"Tags": types.ListValue("Tag A", "Tag B")}, got)
}

func TestParseMetadataTableTextSegmentsWithinCell(t *testing.T) {
	got := ParseMetadataTable(tableRows(t, `<tr><th>Keywords</th><td><a>land</a>, <a>forest</a></td></tr>`))
	assert.Equal(t, types.ListValue("land", ",", "forest"), got["Keywords"])
}

func TestParseMetadataTableMissingLabel(t *testing.T) {
	got := ParseMetadataTable(tableRows(t, `<tr><td>orphan</td></tr>`))
	assert.Equal(t, types.MetadataTable{"": types.SingleValue("orphan")}, got)
}

func TestParseMetadataTableLastWriteWins(t *testing.T) {
	got := ParseMetadataTable(tableRows(t, `
		<tr><th>Year</th><td>1999</td></tr>
		<tr><th>Year</th><td>2001</td><td>2002</td></tr>`))
	assert.Equal(t, types.MetadataTable{"Year": types.ListValue("2001", "2002")}, got)
}

func TestParseMetadataTableNoRows(t *testing.T) {
	assert.Empty(t, ParseMetadataTable(nil))
}

func TestCatalogItems(t *testing.T) {
	doc := mustDoc(t, `
	<ul>
		<li class="dataset-item"><div><h3><a href="/km/dataset/land-law">Land law</a></h3></div></li>
		<li class="dataset-item"><div><h3><a>no href</a></h3></div></li>
		<li class="dataset-item"><div><p>no anchor</p></div></li>
		<li class="dataset-item"><div><h3><a href="km/dataset/forest">Forest</a></h3></div></li>
		<li class="dataset-item"><div><h3><a href="https://other.org/x">Abs</a></h3></div></li>
	</ul>`, base+"/km/dataset/")

	items, skipped := CatalogItems(doc, base)
	assert.Equal(t, []string{
		base + "/km/dataset/land-law",
		base + "/km/dataset/forest",
		"https://other.org/x",
	}, items)
	assert.Equal(t, 2, skipped)
}

func TestCatalogItemsEmptyPage(t *testing.T) {
	items, skipped := CatalogItems(mustDoc(t, "<p>nothing</p>", base), base)
	assert.Empty(t, items)
	assert.Zero(t, skipped)
}

func TestNextPage(t *testing.T) {
	doc := mustDoc(t, `
	<ul class="pagination">
		<li><a href="?page=1">«</a></li>
		<li><a href="?page=1">1</a></li>
		<li><a href="?page=3&amp;utm_source=x">»</a></li>
	</ul>`, base+"/km/dataset/?page=2")

	next, ok := NextPage(doc)
	require.True(t, ok)
	assert.Equal(t, base+"/km/dataset/?page=3", next)
}

func TestNextPageKeepsQueryEncoding(t *testing.T) {
	doc := mustDoc(t, `<ul class="pagination"><li><a href="/km/dataset/?q=&amp;sort=score+desc%2C+metadata_modified+desc&amp;page=2">»</a></li></ul>`,
		base+"/km/dataset/")

	next, ok := NextPage(doc)
	require.True(t, ok)
	assert.Equal(t, base+"/km/dataset/?q=&sort=score+desc%2C+metadata_modified+desc&page=2", next)
}

func TestNextPageAbsent(t *testing.T) {
	doc := mustDoc(t, `<ul class="pagination"><li><a href="?page=1">«</a></li></ul><a href="/x">»</a>`, base)
	_, ok := NextPage(doc)
	assert.False(t, ok)
}

func TestJoinBase(t *testing.T) {
	assert.Equal(t, base+"/a", JoinBase(base+"/", "/a"))
	assert.Equal(t, base+"/a", JoinBase(base, "a"))
	assert.Equal(t, "", JoinBase(base, "  "))
	assert.Equal(t, "https://x.org/a", JoinBase(base, "https://x.org/a"))
}

const detailHTML = `
<html><body>
<div class="toolbar"><ol><li><a>Home</a></li><li><a> Legal Documents </a></li><li><a>Land</a></li></ol></div>
<div class="module-content"><h1> Land Law 2001 </h1>
	<div class="notes"><p>Law text summary</p><p>second</p></div>
	<a class="resource-url-analytics" href="https://files.example/a.pdf">a</a>
	<a class="resource-url-analytics" href="https://files.example/b.pdf">b</a>
	<a class="resource-url-analytics">no href</a>
	<a class="resource-url-analytics" href="https://files.example/a.pdf">dup</a>
</div>
<section class="additional-info"><table class="table"><tbody>
	<tr><th>Year</th><td>2001</td></tr>
	<tr><th>Tags</th><td>Tag A</td><td></td><td>Tag B</td></tr>
</tbody></table></section>
</body></html>`

func TestExtractDetail(t *testing.T) {
	raw := ExtractDetail(mustDoc(t, detailHTML, base+"/km/dataset/land-law"))

	assert.Equal(t, base+"/km/dataset/land-law", raw.URL)
	require.NotNil(t, raw.Title)
	assert.Equal(t, " Land Law 2001 ", *raw.Title)
	require.NotNil(t, raw.Category)
	assert.Equal(t, " Legal Documents ", *raw.Category)
	require.NotNil(t, raw.Content)
	assert.Equal(t, "Law text summary", *raw.Content)
	assert.Equal(t, []string{
		"https://files.example/a.pdf",
		"https://files.example/b.pdf",
		"https://files.example/a.pdf",
	}, raw.FileLinks)
	assert.Equal(t, types.MetadataTable{
		"Year": types.SingleValue("2001"),
		"Tags": types.ListValue("Tag A", "Tag B"),
	}, raw.Metadata)
}

func TestExtractDetailTakesDirectTextOnly(t *testing.T) {
	raw := ExtractDetail(mustDoc(t, `<html><body>
<div class="toolbar"><ol><li><a>Home</a></li><li><a>Laws <span class="count">12</span></a></li></ol></div>
<div class="module-content"><h1>Land Law <span class="badge">Draft</span></h1></div>
<div class="notes"><p><em>Summary</em> of the law</p></div>
</body></html>`, base+"/km/dataset/land-law"))

	require.NotNil(t, raw.Title)
	assert.Equal(t, "Land Law ", *raw.Title)
	require.NotNil(t, raw.Category)
	assert.Equal(t, "Laws ", *raw.Category)
	require.NotNil(t, raw.Content)
	assert.Equal(t, " of the law", *raw.Content)
}

func TestExtractDetailHeadingWithoutText(t *testing.T) {
	raw := ExtractDetail(mustDoc(t, `<div class="module-content"><h1><img src="logo.png"></h1></div>`, base+"/x"))
	assert.Nil(t, raw.Title)
}

func TestExtractDetailMissingElements(t *testing.T) {
	raw := ExtractDetail(mustDoc(t, "<html><body><p>gone</p></body></html>", base+"/x"))

	assert.Nil(t, raw.Title)
	assert.Nil(t, raw.Category)
	assert.Nil(t, raw.Content)
	assert.Empty(t, raw.FileLinks)
	assert.Empty(t, raw.Metadata)
}
