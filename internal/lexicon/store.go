package lexicon

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Store publishes the current lexicon. A reload builds a new Lexicon and swaps
// the pointer; requests holding the previous snapshot keep using it.
type Store struct {
	current atomic.Pointer[Lexicon]
	path    string
	logger  *zap.Logger

	mu        sync.Mutex
	listeners []func(*Lexicon)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for reload events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithPath sets the catalog path used by Reload.
func WithPath(path string) StoreOption {
	return func(s *Store) { s.path = path }
}

// NewStore wraps an already built lexicon.
func NewStore(lex *Lexicon, opts ...StoreOption) *Store {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if lex == nil {
		lex = Build(nil)
	}
	s.current.Store(lex)
	return s
}

// OpenStore loads the catalog at path and returns a store that reloads from it.
func OpenStore(path string, opts ...StoreOption) (*Store, error) {
	lex, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewStore(lex, append([]StoreOption{WithPath(path)}, opts...)...), nil
}

// Current returns the lexicon snapshot to use for one request.
func (s *Store) Current() *Lexicon {
	return s.current.Load()
}

// Path returns the catalog path, or "" for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// OnSwap registers fn to run after every successful swap.
func (s *Store) OnSwap(fn func(*Lexicon)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Swap publishes lex and notifies listeners.
func (s *Store) Swap(lex *Lexicon) {
	s.current.Store(lex)
	s.mu.Lock()
	listeners := append([]func(*Lexicon){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(lex)
	}
}

// Reload rebuilds the lexicon from its catalog path. On failure the previous
// lexicon stays in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return fmt.Errorf("lexicon store has no path")
	}
	lex, err := Load(s.path)
	if err != nil {
		s.logger.Warn("lexicon reload failed", zap.String("path", s.path), zap.Error(err))
		return err
	}
	prev := s.Current().Len()
	s.Swap(lex)
	s.logger.Info("lexicon reloaded",
		zap.String("path", s.path),
		zap.Int("entries", lex.Len()),
		zap.Int("previous_entries", prev),
	)
	return nil
}
