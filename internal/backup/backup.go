// Package backup stores pre-mutation object snapshots. Every apply
// writes one timestamped JSON file under
// <state>/<customer>/backups/ before the first mutating call goes out;
// restore reads the same files back. Backups are immutable once
// written.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrNotFound is returned when a backup path does not exist.
var ErrNotFound = errors.New("backup not found")

// Record is the on-disk backup format.
type Record struct {
	BackedUpAt time.Time       `json:"backed_up_at"`
	Customer   string          `json:"customer"`
	ObjectType string          `json:"object_type"`
	ObjectID   string          `json:"object_id"`
	Data       json.RawMessage `json:"data"`
}

// Store writes and reads backups for one customer namespace.
type Store struct {
	dir      string
	customer string
	now      func() time.Time
}

// NewStore creates the backup directory for a customer if needed.
func NewStore(stateDir, customer string) (*Store, error) {
	dir := filepath.Join(stateDir, customer, "backups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	return &Store{dir: dir, customer: customer, now: time.Now}, nil
}

// Dir returns the backup directory.
func (s *Store) Dir() string { return s.dir }

// Save writes a snapshot and returns its path. The file is synced
// before Save returns: callers rely on the backup being durable before
// they mutate anything.
//
// Filenames follow <objectType>_<shortID>_<timestamp>.json, with the
// object id truncated to 8 characters.
func (s *Store) Save(objectType, objectID string, data json.RawMessage) (string, error) {
	shortID := objectID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	now := s.now()
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s.json",
		objectType, shortID, now.Format("20060102_150405")))

	record := Record{
		BackedUpAt: now.UTC(),
		Customer:   s.customer,
		ObjectType: objectType,
		ObjectID:   objectID,
		Data:       data,
	}
	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling backup record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating backup file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(payload); err != nil {
		return "", fmt.Errorf("writing backup file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing backup file: %w", err)
	}
	return path, nil
}

// Load reads a backup record from a path.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading backup file: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing backup file %s: %w", path, err)
	}
	return &record, nil
}

// List returns the backup file paths for this customer, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}
