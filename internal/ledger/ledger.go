// Package ledger keeps the set of detail pages already harvested. The set is
// loaded from an append-only log at startup and every new entry is appended
// to it, so a restarted run skips what earlier runs finished.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/BenjaminSRussell/odc_harvest/internal/faults"
)

const (
	// minimum bloom sizing; the exact set stays authoritative past it
	minBloomCapacity   = 100_000
	bloomFalsePositive = 0.01
)

// Ledger is the visited-URL set. It is safe for concurrent use.
type Ledger struct {
	path string

	mu   sync.RWMutex
	urls map[string]struct{}
	seen *bloom.BloomFilter
	log  *os.File
}

// Open loads the log at path into memory. A missing file is an empty ledger;
// any other read failure is a LedgerIOFault.
func Open(path string) (*Ledger, error) {
	urls, err := load(path)
	if err != nil {
		return nil, err
	}

	capacity := uint(len(urls) * 2)
	if capacity < minBloomCapacity {
		capacity = minBloomCapacity
	}

	l := &Ledger{
		path: path,
		urls: make(map[string]struct{}, len(urls)),
		seen: bloom.NewWithEstimates(capacity, bloomFalsePositive),
	}
	for _, u := range urls {
		l.urls[u] = struct{}{}
		l.seen.AddString(u)
	}

	return l, nil
}

func load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &faults.LedgerIOFault{Path: path, Op: "read", Err: err}
	}
	defer file.Close()

	urls := make([]string, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &faults.LedgerIOFault{Path: path, Op: "read", Err: err}
	}

	return urls, nil
}

// Contains reports whether url has been harvested. Surrounding whitespace is
// ignored, as in Add.
func (l *Ledger) Contains(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.seen.TestString(url) {
		return false
	}
	_, ok := l.urls[url]
	return ok
}

// Add records url as harvested and appends it to the log. Adding a known url
// does nothing. When the append fails the url stays recorded in memory and a
// LedgerIOFault is returned.
func (l *Ledger) Add(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.urls[url]; ok {
		return nil
	}
	l.urls[url] = struct{}{}
	l.seen.AddString(url)

	if err := l.appendLocked(url); err != nil {
		return &faults.LedgerIOFault{Path: l.path, Op: "append", Err: err}
	}
	return nil
}

// appendLocked writes one newline-terminated line; callers hold l.mu
func (l *Ledger) appendLocked(url string) error {
	if l.log == nil {
		if dir := filepath.Dir(l.path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create ledger directory: %w", err)
			}
		}
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		l.log = file
	}

	if _, err := l.log.WriteString(url + "\n"); err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return l.log.Sync()
}

// Len returns the number of harvested urls
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.urls)
}

// Path returns the backing log location
func (l *Ledger) Path() string {
	return l.path
}

// Close releases the log file
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.log == nil {
		return nil
	}
	err := l.log.Close()
	l.log = nil
	return err
}
