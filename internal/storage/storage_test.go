package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

func sampleRecord(url, category string) types.OutputRecord {
	return types.OutputRecord{
		URL: url,
		Provenance: types.ProvenanceHeaders{
			"WARC-Type":       "response",
			"WARC-Target-URI": url,
		},
		FileMetadata: types.FileMetadata{
			Title:     "Land Law",
			Category:  category,
			FileLinks: []string{"https://example.org/a.pdf", "https://example.org/b.pdf"},
			Metadata: types.MetadataTable{
				"Language": types.SingleValue("Khmer"),
				"Tags":     types.ListValue("land", "law"),
			},
		},
		CrawledAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestStorageEmitAndLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Emit(ctx, sampleRecord("https://example.org/dataset/a", "Laws")))
	require.NoError(t, store.Emit(ctx, sampleRecord("https://example.org/dataset/b", "Maps")))
	require.NoError(t, store.Close())

	records, bad, err := LoadRecords(dir)
	require.NoError(t, err)
	assert.Zero(t, bad)
	require.Len(t, records, 2)
	assert.Equal(t, "https://example.org/dataset/a", records[0].URL)
	assert.Equal(t, "Maps", records[1].FileMetadata.Category)
	assert.Equal(t, []string{"land", "law"}, records[0].FileMetadata.Metadata["Tags"].Values)
	assert.Nil(t, records[0].Content)
}

func TestStorageAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Emit(ctx, sampleRecord("https://example.org/dataset/a", "Laws")))
	require.NoError(t, store.Close())

	store, err = New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Emit(ctx, sampleRecord("https://example.org/dataset/b", "Laws")))
	require.NoError(t, store.Close())

	records, _, err := LoadRecords(dir)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStorageEmitIsDurableBeforeClose(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Emit(context.Background(), sampleRecord("https://example.org/dataset/a", "Laws")))

	records, bad, err := LoadRecords(dir)
	require.NoError(t, err)
	assert.Zero(t, bad)
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.org/dataset/a", records[0].URL)
}

func TestStorageEmitAfterClose(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.Error(t, store.Emit(context.Background(), sampleRecord("https://example.org/x", "Laws")))
}

func TestStorageEmitCancelled(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Emit(ctx, sampleRecord("https://example.org/x", "Laws")), context.Canceled)
}

func TestLoadRecordsSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"url":"https://example.org/a","content":null,"provenance":{},"enrichment":null,"file_metadata":{"title":"A","category":"Laws","pdf_links":[],"additional_data":{}},"crawled_at":"2024-03-01T10:00:00Z"}
not json

`
	require.NoError(t, os.WriteFile(filepath.Join(dir, recordsFile), []byte(content), 0644))

	records, bad, err := LoadRecords(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, bad)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].FileMetadata.Title)
}

func TestLoadRecordsMissingFile(t *testing.T) {
	records, bad, err := LoadRecords(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, bad)
	assert.Empty(t, records)
}

func TestStorageConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	config := types.DefaultConfig()
	config.Workers = 3
	config.DataDir = dir
	require.NoError(t, store.SaveConfig(config))

	loaded, err := store.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestStorageLoadConfigMissing(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.LoadConfig()
	assert.Error(t, err)
}

func TestSQLiteStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "records.db")
	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	content := "Land management notes"
	withContent := sampleRecord("https://example.org/dataset/a", "Laws")
	withContent.Content = &content

	require.NoError(t, store.SaveRecord(ctx, withContent))
	require.NoError(t, store.Emit(ctx, sampleRecord("https://example.org/dataset/b", "Maps")))

	// Re-emitting the same URL replaces the row.
	require.NoError(t, store.Emit(ctx, withContent))

	all, err := store.QueryRecords(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	laws, err := store.QueryRecords(ctx, "Laws")
	require.NoError(t, err)
	require.Len(t, laws, 1)
	got := laws[0]
	assert.Equal(t, withContent.URL, got.URL)
	require.NotNil(t, got.Content)
	assert.Equal(t, content, *got.Content)
	assert.Equal(t, withContent.FileMetadata.FileLinks, got.FileMetadata.FileLinks)
	assert.Equal(t, withContent.FileMetadata.Metadata, got.FileMetadata.Metadata)
	assert.Equal(t, withContent.Provenance, got.Provenance)
	assert.True(t, withContent.CrawledAt.Equal(got.CrawledAt))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats["total_records"])
	assert.Equal(t, 1, stats["category:Laws"])
	assert.Equal(t, 1, stats["category:Maps"])
}

type failingSink struct{ err error }

func (f failingSink) Emit(ctx context.Context, rec types.OutputRecord) error { return f.err }

func TestMultiSinkStopsAtFirstFailure(t *testing.T) {
	ch := make(chan types.OutputRecord, 2)
	boom := assert.AnError

	sink := MultiSink{NewChannelSink(ch), failingSink{err: boom}, NewChannelSink(ch)}
	err := sink.Emit(context.Background(), sampleRecord("https://example.org/a", "Laws"))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, ch, 1)
}

func TestChannelSinkRespectsCancel(t *testing.T) {
	ch := make(chan types.OutputRecord)
	sink := NewChannelSink(ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Emit(ctx, sampleRecord("https://example.org/a", "Laws")), context.Canceled)

	assert.Error(t, NewChannelSink(nil).Emit(context.Background(), types.OutputRecord{}))
}
