package session

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kodeflux/agentcore/internal/util"
	"github.com/kodeflux/agentcore/logging"
	"github.com/kodeflux/agentcore/message"
)

// Store is the persistence contract the agent loop depends on.
type Store interface {
	GetOrCreate(key string) (*Session, error)
	Save(session *Session) error
	Invalidate(key string)
	ListSessions() ([]SessionMeta, error)
}

// SessionMeta is the lightweight listing shape returned by ListSessions,
// read from each file's metadata line without loading its messages.
type SessionMeta struct {
	Key              string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastConsolidated int
}

type metadataEnvelope struct {
	Type             string         `json:"_type"`
	Key              string         `json:"key"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Metadata         map[string]any `json:"metadata"`
	LastConsolidated int            `json:"last_consolidated"`
}

// Options configures a FileStore.
type Options struct {
	// LegacyDir, when set, is checked for a pre-migration session file on a
	// cache miss; a hit is moved atomically into Dir before loading.
	LegacyDir string
	Logger    logging.Logger
}

// FileStore is a JSONL file-backed Store with an in-memory cache. The cache
// entry for a key is populated on first access and kept up to date by Save;
// Invalidate only ever removes the cache entry, never the backing file.
type FileStore struct {
	mu        sync.RWMutex
	cache     map[string]*Session
	dir       string
	legacyDir string
	logger    logging.Logger
}

// NewFileStore creates a FileStore rooted at dir (created if missing).
func NewFileStore(dir string, optFns ...func(*Options)) (*FileStore, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create store dir: %w", err)
	}
	return &FileStore{
		cache:     make(map[string]*Session),
		dir:       dir,
		legacyDir: opts.LegacyDir,
		logger:    opts.Logger,
	}, nil
}

func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.dir, util.SafeSessionFilename(key)+".jsonl")
}

func (fs *FileStore) legacyPath(key string) string {
	if fs.legacyDir == "" {
		return ""
	}
	return filepath.Join(fs.legacyDir, util.SafeSessionFilename(key)+".jsonl")
}

// GetOrCreate returns the cached session if present; otherwise loads it from
// disk, migrating a legacy file in if found; otherwise constructs and caches
// a fresh empty session.
func (fs *FileStore) GetOrCreate(key string) (*Session, error) {
	fs.mu.RLock()
	if s, ok := fs.cache[key]; ok {
		defer fs.mu.RUnlock()
		return s.Clone(), nil
	}
	fs.mu.RUnlock()

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if s, ok := fs.cache[key]; ok {
		return s.Clone(), nil
	}

	if s, err := fs.loadLocked(key); err == nil {
		fs.cache[key] = s
		return s.Clone(), nil
	}

	fs.migrateLegacyLocked(key)

	if s, err := fs.loadLocked(key); err == nil {
		fs.cache[key] = s
		return s.Clone(), nil
	}

	s := New(key)
	fs.cache[key] = s
	return s.Clone(), nil
}

// migrateLegacyLocked moves a legacy session file into the primary location
// if one exists. A migration failure is logged and swallowed: it must never
// prevent creating a fresh session.
func (fs *FileStore) migrateLegacyLocked(key string) {
	legacy := fs.legacyPath(key)
	if legacy == "" {
		return
	}
	if _, err := os.Stat(legacy); err != nil {
		return
	}
	dest := fs.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		fs.logger.Warn("session legacy migration failed", "key", key, "error", err)
		return
	}
	if err := os.Rename(legacy, dest); err != nil {
		fs.logger.Warn("session legacy migration failed", "key", key, "error", err)
		return
	}
	fs.logger.Info("migrated legacy session file", "key", key, "from", legacy, "to", dest)
}

func (fs *FileStore) loadLocked(key string) (*Session, error) {
	data, err := os.ReadFile(fs.path(key))
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("session: empty file for %q", key)
	}
	var meta metadataEnvelope
	if err := unmarshalLine(scanner.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("session: decode metadata for %q: %w", key, err)
	}

	s := &Session{
		Key:              meta.Key,
		CreatedAt:        meta.CreatedAt,
		UpdatedAt:        meta.UpdatedAt,
		Metadata:         meta.Metadata,
		LastConsolidated: meta.LastConsolidated,
	}
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		m, err := message.DecodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("session: decode message for %q: %w", key, err)
		}
		s.Messages = append(s.Messages, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("session: scan %q: %w", key, err)
	}

	return s, nil
}

// Save rewrites the session's file atomically (metadata line plus all
// messages) and refreshes the cache.
func (fs *FileStore) Save(s *Session) error {
	meta := metadataEnvelope{
		Type:             "metadata",
		Key:              s.Key,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		Metadata:         s.Metadata,
		LastConsolidated: s.LastConsolidated,
	}

	var buf bytes.Buffer
	if err := marshalLine(&buf, meta); err != nil {
		return fmt.Errorf("session: marshal metadata: %w", err)
	}
	for _, m := range s.Messages {
		if err := marshalLine(&buf, m); err != nil {
			return fmt.Errorf("session: marshal message: %w", err)
		}
	}

	if err := util.WriteFileAtomic(fs.path(s.Key), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("session: write %q: %w", s.Key, err)
	}

	fs.mu.Lock()
	fs.cache[s.Key] = s.Clone()
	fs.mu.Unlock()
	return nil
}

// Invalidate removes the cache entry for key; the backing file is untouched.
func (fs *FileStore) Invalidate(key string) {
	fs.mu.Lock()
	delete(fs.cache, key)
	fs.mu.Unlock()
}

// ListSessions enumerates session files, reading only each file's metadata
// line, sorted by UpdatedAt descending.
func (fs *FileStore) ListSessions() ([]SessionMeta, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("session: read dir: %w", err)
	}

	var metas []SessionMeta
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		f, err := os.Open(filepath.Join(fs.dir, e.Name()))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		if scanner.Scan() {
			var meta metadataEnvelope
			if err := unmarshalLine(scanner.Bytes(), &meta); err == nil {
				metas = append(metas, SessionMeta{
					Key:              meta.Key,
					CreatedAt:        meta.CreatedAt,
					UpdatedAt:        meta.UpdatedAt,
					LastConsolidated: meta.LastConsolidated,
				})
			}
		}
		f.Close()
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].UpdatedAt.After(metas[j].UpdatedAt) })
	return metas, nil
}
