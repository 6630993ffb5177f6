// Package cache provides the on-disk JSON document store backing the sync
// daemon. Each data domain (calendar, reminders, notes, devices) owns one
// document under the cache root, plus a status document recording the last
// sync cycle.
//
// Writes are atomic (temp file + rename) so a kill mid-write never leaves a
// torn document behind.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Sentinel errors for read failures.
var (
	// ErrNotFound means no document exists for the requested domain.
	ErrNotFound = errors.New("cache document not found")
	// ErrCorrupt means a document exists but does not parse as JSON.
	ErrCorrupt = errors.New("cache document corrupt")
)

// StatusDomain is the document name for the per-cycle sync status.
const StatusDomain = "last_sync"

// SyncStatus is the document written at the end of every sync cycle. It
// records that a cycle was attempted, not that every domain succeeded.
type SyncStatus struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// Store is a key-addressed JSON document store rooted at a directory.
type Store struct {
	root string
}

// New returns a store rooted at dir. The directory is created lazily on
// first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the on-disk path for a domain's document.
func (s *Store) Path(domain string) string {
	return filepath.Join(s.root, domain+".json")
}

// EnsureRoot creates the cache root directory if needed.
func (s *Store) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return nil
}

// Write serializes v to the domain's document, replacing any previous
// content. The write goes to a temp file in the same directory and is
// renamed into place.
func (s *Store) Write(domain string, v any) error {
	if err := s.EnsureRoot(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", domain, err)
	}

	tmp, err := os.CreateTemp(s.root, domain+"-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.Path(domain))
}

// Read unmarshals the domain's document into v. Returns ErrNotFound if no
// document exists and ErrCorrupt (wrapped) if it does not parse.
func (s *Store) Read(domain string, v any) error {
	data, err := os.ReadFile(s.Path(domain))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", domain, ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", domain, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w: %v", domain, ErrCorrupt, err)
	}
	return nil
}

// Exists reports whether a document exists for the domain.
func (s *Store) Exists(domain string) bool {
	_, err := os.Stat(s.Path(domain))
	return err == nil
}

// WriteStatus records a completed sync cycle at time t.
func (s *Store) WriteStatus(t time.Time) error {
	return s.Write(StatusDomain, SyncStatus{
		Timestamp: t.Format(time.RFC3339),
		Status:    "ok",
	})
}

// ReadStatus returns the last recorded sync status, or ErrNotFound /
// ErrCorrupt like any other document.
func (s *Store) ReadStatus() (*SyncStatus, error) {
	var st SyncStatus
	if err := s.Read(StatusDomain, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
