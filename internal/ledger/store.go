// Package ledger owns the income, expense and pending receivable collections
// and the aggregates derived from them.
//
// A Store is the single writer of its persisted blob: every mutation goes
// through its methods and is flushed to the backing key before the method
// returns.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cartera/internal/core"
	"cartera/internal/storage"
)

// DefaultKey is the namespace the ledger blob is stored under.
const DefaultKey = "cuentas:cartera:v1"

// Backend is the persistence surface the store reads from and flushes to.
type Backend interface {
	storage.Reader
	storage.Writer
}

// State is the persisted ledger blob.
type State struct {
	Entries  []core.Entry             `json:"entries"`
	Expenses []core.Entry             `json:"expenses"`
	Pendings []core.PendingReceivable `json:"pendings"`
}

// Record is one row of any collection. Paid and the association fields only
// apply to pending receivables.
type Record struct {
	Kind core.Kind `json:"kind"`
	core.Entry
	Paid             bool   `json:"paid"`
	AssociatedTo     string `json:"associatedTo,omitempty"`
	AssociatedToName string `json:"associatedToName,omitempty"`
}

type Store struct {
	mu       sync.RWMutex
	backend  Backend
	key      string
	state    State
	revision uint64

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Store)

// WithClock overrides the time source used for creation timestamps, default
// dates and the current month.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the record id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the blob stored under key. A missing or malformed blob yields an
// empty ledger; only a backend failure is returned.
func Open(ctx context.Context, backend Backend, key string, opts ...Option) (*Store, error) {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		backend: backend,
		key:     key,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", key, err)
	}
	s.state = decodeState(ctx, s.logger, key, raw)
	return s, nil
}

func decodeState(ctx context.Context, logger *slog.Logger, key, raw string) State {
	var st State
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			logger.WarnContext(ctx, "Discarding unreadable ledger blob",
				"key", key,
				"error", err)
			st = State{}
		}
	}
	if st.Entries == nil {
		st.Entries = []core.Entry{}
	}
	if st.Expenses == nil {
		st.Expenses = []core.Entry{}
	}
	if st.Pendings == nil {
		st.Pendings = []core.PendingReceivable{}
	}
	return st
}

// Key returns the storage key of the blob.
func (s *Store) Key() string { return s.key }

// Revision increments with every applied mutation.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Entries:  append([]core.Entry{}, s.state.Entries...),
		Expenses: append([]core.Entry{}, s.state.Expenses...),
		Pendings: append([]core.PendingReceivable{}, s.state.Pendings...),
	}
}

// flushLocked must be called with mu held for writing.
func (s *Store) flushLocked(ctx context.Context) error {
	s.revision++
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("persist ledger %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) expenseName(id string) string {
	if id == "" {
		return ""
	}
	for _, e := range s.state.Expenses {
		if e.ID == id {
			return e.Name
		}
	}
	return ""
}

func (s *Store) entriesLocked(kind core.Kind) *[]core.Entry {
	switch kind {
	case core.Income:
		return &s.state.Entries
	case core.Expense:
		return &s.state.Expenses
	default:
		return nil
	}
}

func indexOfEntry(list []core.Entry, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfPending(id string) int {
	for i := range s.state.Pendings {
		if s.state.Pendings[i].ID == id {
			return i
		}
	}
	return -1
}
