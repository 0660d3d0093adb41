package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BenjaminSRussell/odc_harvest/internal/types"
)

const (
	recordsFile = "records.jsonl"
	configFile  = "config.json"
)

// Storage appends emitted records to a JSONL file in the data directory
type Storage struct {
	dataDir string
	mu      sync.Mutex
	jsonl   *os.File
}

// New creates a new storage instance
func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	jsonlPath := filepath.Join(dataDir, recordsFile)
	file, err := os.OpenFile(jsonlPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
		jsonl:   file,
	}, nil
}

// Emit writes one record as a JSON line
func (s *Storage) Emit(ctx context.Context, rec types.OutputRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jsonl == nil {
		return errors.New("storage is closed")
	}
	if _, err := s.jsonl.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	// the ledger commits a url only after its record is on disk
	if err := s.jsonl.Sync(); err != nil {
		return fmt.Errorf("failed to sync records: %w", err)
	}

	return nil
}

// SaveConfig saves crawler configuration
func (s *Storage) SaveConfig(config types.Config) error {
	configPath := filepath.Join(s.dataDir, configFile)

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// LoadConfig loads crawler configuration
func (s *Storage) LoadConfig() (types.Config, error) {
	configPath := filepath.Join(s.dataDir, configFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return types.Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var config types.Config
	if err := json.Unmarshal(data, &config); err != nil {
		return types.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// LoadRecords reads every record emitted so far. Lines that fail to decode
// are skipped and counted.
func LoadRecords(dataDir string) ([]types.OutputRecord, int, error) {
	file, err := os.Open(filepath.Join(dataDir, recordsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.OutputRecord{}, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	records := make([]types.OutputRecord, 0)
	bad := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 256*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec types.OutputRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			bad++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, bad, fmt.Errorf("failed to read JSONL file: %w", err)
	}

	return records, bad, nil
}

// Close closes the storage
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jsonl == nil {
		return nil
	}
	err := s.jsonl.Close()
	s.jsonl = nil
	return err
}
