// Package audit maintains the append-only operation trail. Each
// customer namespace gets one newline-delimited JSON file
// (<state>/<customer>/audit.jsonl) that is only ever appended to:
// previews, applied mutations, restores, and their failures all land
// here, so the file is the authoritative history of what the tool did
// to a customer's workspace.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Entry statuses. Preview entries record read-only inspections; every
// mutating operation ends as success or error.
const (
	StatusPreview = "preview"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one audit record.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Operation string         `json:"operation"`
	ObjectID  string         `json:"object_id"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details"`
}

// Logger appends entries to a customer's audit log.
type Logger struct {
	path string
	now  func() time.Time
}

// NewLogger creates a logger for one customer namespace, creating the
// namespace directory if needed.
func NewLogger(stateDir, customer string) (*Logger, error) {
	dir := filepath.Join(stateDir, customer)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}
	return &Logger{
		path: filepath.Join(dir, "audit.jsonl"),
		now:  time.Now,
	}, nil
}

// Path returns the audit log location.
func (l *Logger) Path() string { return l.path }

// Append writes one entry. The file is opened in append mode and
// synced before returning, so an entry that Append reported as written
// survives a crash of the process.
func (l *Logger) Append(operation, objectID, status string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		Operation: operation,
		ObjectID:  objectID,
		Status:    status,
		Details:   details,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing audit log: %w", err)
	}
	return nil
}

// Tail returns the last n entries, oldest first. A missing log file
// yields an empty slice: a customer with no history is not an error.
func (l *Logger) Tail(n int) ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			// A torn trailing line from a crashed writer is skipped
			// rather than poisoning the whole read.
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
