// Package memory implements the two-tier long-term memory store: MEMORY.md
// (a fully-rewritten Markdown fact sheet) and HISTORY.md (an append-only,
// timestamped paragraph log), plus the LLM-driven consolidation protocol that
// folds older session turns into both.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kodeflux/agentcore/internal/util"
	"github.com/kodeflux/agentcore/logging"
)

const (
	longTermFilename = "MEMORY.md"
	historyFilename  = "HISTORY.md"
)

// Options configures a Store.
type Options struct {
	Logger logging.Logger
}

// Store reads and writes the two memory artifacts inside a workspace
// memory/ directory.
type Store struct {
	dir    string
	logger logging.Logger
}

// NewStore creates a Store rooted at dir (created if missing).
func NewStore(dir string, optFns ...func(*Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("memory: create dir: %w", err)
	}
	return &Store{dir: dir, logger: opts.Logger}, nil
}

func (s *Store) longTermPath() string { return filepath.Join(s.dir, longTermFilename) }
func (s *Store) historyPath() string  { return filepath.Join(s.dir, historyFilename) }

// ReadLongTerm returns MEMORY.md's contents, or "" if the file is absent.
func (s *Store) ReadLongTerm() (string, error) {
	data, err := os.ReadFile(s.longTermPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("memory: read long-term: %w", err)
	}
	return string(data), nil
}

// WriteLongTerm fully overwrites MEMORY.md.
func (s *Store) WriteLongTerm(content string) error {
	if err := util.WriteFileAtomic(s.longTermPath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("memory: write long-term: %w", err)
	}
	return nil
}

// AppendHistory appends a paragraph plus a trailing blank line to HISTORY.md.
func (s *Store) AppendHistory(entry string) error {
	f, err := os.OpenFile(s.historyPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("memory: open history: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.TrimRight(entry, "\n") + "\n\n"); err != nil {
		return fmt.Errorf("memory: append history: %w", err)
	}
	return nil
}

// GetMemoryContext returns the long-term memory wrapped for splicing into
// the system prompt, or "" if there is nothing to show.
func (s *Store) GetMemoryContext() (string, error) {
	content, err := s.ReadLongTerm()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	return "## Long-term Memory\n" + content, nil
}
