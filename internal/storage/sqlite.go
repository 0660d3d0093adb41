package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

// SQLiteFile is the database file name inside the data directory
const SQLiteFile = "records.db"

// SQLiteStorage provides SQLite-based storage for queryable records
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT,
		file_links TEXT NOT NULL,
		metadata TEXT NOT NULL,
		provenance TEXT NOT NULL,
		crawled_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_category ON records(category);
	CREATE INDEX IF NOT EXISTS idx_crawled_at ON records(crawled_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Emit stores rec, replacing any earlier copy of the same URL
func (s *SQLiteStorage) Emit(ctx context.Context, rec types.OutputRecord) error {
	return s.SaveRecord(ctx, rec)
}

// SaveRecord upserts a record
func (s *SQLiteStorage) SaveRecord(ctx context.Context, rec types.OutputRecord) error {
	links, err := json.Marshal(rec.FileMetadata.FileLinks)
	if err != nil {
		return fmt.Errorf("failed to marshal file links: %w", err)
	}
	metadata, err := json.Marshal(rec.FileMetadata.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	provenance, err := json.Marshal(rec.Provenance)
	if err != nil {
		return fmt.Errorf("failed to marshal provenance: %w", err)
	}

	var content sql.NullString
	if rec.Content != nil {
		content = sql.NullString{String: *rec.Content, Valid: true}
	}

	query := `
		INSERT OR REPLACE INTO records
		(url, title, category, content, file_links, metadata, provenance, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.URL,
		rec.FileMetadata.Title,
		rec.FileMetadata.Category,
		content,
		string(links),
		string(metadata),
		string(provenance),
		rec.CrawledAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// QueryRecords returns stored records, optionally restricted to one category
func (s *SQLiteStorage) QueryRecords(ctx context.Context, category string) ([]types.OutputRecord, error) {
	query := "SELECT url, title, category, content, file_links, metadata, provenance, crawled_at FROM records WHERE 1=1"
	args := make([]interface{}, 0)

	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY crawled_at, url"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	results := make([]types.OutputRecord, 0)
	for rows.Next() {
		var rec types.OutputRecord
		var content sql.NullString
		var links, metadata, provenance, crawledAt string
		if err := rows.Scan(
			&rec.URL,
			&rec.FileMetadata.Title,
			&rec.FileMetadata.Category,
			&content,
			&links,
			&metadata,
			&provenance,
			&crawledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if content.Valid {
			c := content.String
			rec.Content = &c
		}
		if err := json.Unmarshal([]byte(links), &rec.FileMetadata.FileLinks); err != nil {
			return nil, fmt.Errorf("failed to decode file links for %s: %w", rec.URL, err)
		}
		if err := json.Unmarshal([]byte(metadata), &rec.FileMetadata.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", rec.URL, err)
		}
		if err := json.Unmarshal([]byte(provenance), &rec.Provenance); err != nil {
			return nil, fmt.Errorf("failed to decode provenance for %s: %w", rec.URL, err)
		}
		rec.CrawledAt, _ = time.Parse(time.RFC3339Nano, crawledAt)

		results = append(results, rec)
	}

	return results, rows.Err()
}

// GetStats returns record counts overall and per category
func (s *SQLiteStorage) GetStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&total); err != nil {
		return nil, err
	}
	stats["total_records"] = total

	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM records GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats["category:"+category] = count
	}

	return stats, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
