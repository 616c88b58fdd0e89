package pantrypal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MutationLogger is the interface for recording collection mutations.
type MutationLogger interface {
	LogMutation(entry MutationLog) error
}

// NewMutationLogFilePath returns a file path stamped with the current time and the user id so
// logs from separate sessions are easy to tell apart.
func NewMutationLogFilePath(dir, userID string) string {
	if dir == "" {
		dir = "./logs"
	}
	return fmt.Sprintf(
		"%s/%d.%s.json",
		strings.TrimRight(dir, "/"),
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(userID), "/", "_"),
	)
}

// MutationLog represents a single mutation applied by a collection manager.
type MutationLog struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	Key        string    `json:"key"`
	Before     any       `json:"before,omitempty"`
	After      any       `json:"after,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

// NewMutationLog stamps a fresh entry with an id and timestamp.
func NewMutationLog(userID, collection, op, key string) MutationLog {
	return MutationLog{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		UserID:     userID,
		Collection: collection,
		Op:         op,
		Key:        key,
	}
}

// FileMutationLogger accumulates entries and writes them as one JSON document on Flush.
type FileMutationLogger struct {
	mu      sync.Mutex
	entries []MutationLog
	writer  io.Writer
}

// NewFileMutationLogger creates a new file-based mutation logger
func NewFileMutationLogger(w io.Writer) *FileMutationLogger {
	return &FileMutationLogger{
		entries: make([]MutationLog, 0),
		writer:  w,
	}
}

// LogMutation buffers an entry until the next Flush
func (fml *FileMutationLogger) LogMutation(entry MutationLog) error {
	fml.mu.Lock()
	defer fml.mu.Unlock()
	fml.entries = append(fml.entries, entry)
	return nil
}

// Flush flushes all accumulated entries to the writer
func (fml *FileMutationLogger) Flush() error {
	fml.mu.Lock()
	defer fml.mu.Unlock()

	if fml.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"mutation_session": map[string]any{
			"timestamp": time.Now(),
			"mutations": fml.entries,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mutation log: %w", err)
	}

	if _, err := fml.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write mutation log: %w", err)
	}

	fml.entries = fml.entries[:0]
	return nil
}

// NoOpMutationLogger discards all entries
type NoOpMutationLogger struct{}

func NewNoOpMutationLogger() *NoOpMutationLogger {
	return &NoOpMutationLogger{}
}

func (nop *NoOpMutationLogger) LogMutation(entry MutationLog) error {
	return nil
}

// StdoutMutationLogger writes each entry as a JSON line (for Lambda/CloudWatch)
type StdoutMutationLogger struct {
	out io.Writer
}

func NewStdoutMutationLogger() *StdoutMutationLogger {
	return &StdoutMutationLogger{out: os.Stdout}
}

func (l *StdoutMutationLogger) LogMutation(entry MutationLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}
