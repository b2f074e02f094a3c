package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cartera/internal/storage"
)

// Store keeps blobs in process memory. Nothing survives a restart unless the
// store was seeded from files.
type Store struct {
	mu     sync.Mutex
	items  map[string]string
	closed bool
}

func New() *Store {
	return &Store{items: make(map[string]string)}
}

// NewFromFiles seeds the store from "<key>.json" files found in base. Lines
// starting with '#' are ignored so fixtures can carry a header comment.
func NewFromFiles(base string) *Store {
	s := New()
	matches, _ := filepath.Glob(filepath.Join(base, "*.json"))
	for _, path := range matches {
		content := readContent(path)
		if content == "" {
			continue
		}
		key := strings.TrimSuffix(filepath.Base(path), ".json")
		s.items[key] = content
	}
	return s
}

// Get returns the blob for key, or "" when absent.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", storage.ErrClosed
	}
	return s.items[key], nil
}

// Set stores value under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.items[key] = value
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Keys lists stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}

func readContent(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var _ storage.KV = (*Store)(nil)
