// Package search runs bookmark searches as the user types: queries are
// debounced, short queries never reach the store, and a result is only
// delivered if no newer search was issued in the meantime.
package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/model"
)

const (
	// MinQueryLength is the shortest query, in characters, that is searched.
	MinQueryLength = 2
	// DefaultDelay is the quiet period after the last keystroke.
	DefaultDelay = 300 * time.Millisecond
)

// Searcher runs one search against the store.
type Searcher interface {
	Search(ctx context.Context, q string) ([]model.BookmarkWithRelations, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, q string) ([]model.BookmarkWithRelations, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, q string) ([]model.BookmarkWithRelations, error) {
	return f(ctx, q)
}

// Result is the outcome of one issued search.
type Result struct {
	Seq       uint64
	Query     string
	Bookmarks []model.BookmarkWithRelations
	Err       error
}

// Options configures an Engine.
type Options struct {
	Delay time.Duration
	// OnResult receives every result that is still current when it arrives.
	// It is called from a timer goroutine.
	OnResult func(Result)
	Logger   *zap.Logger
}

// Engine turns keystrokes into searches.
type Engine struct {
	searcher Searcher
	onResult func(Result)
	debounce *Debouncer
	log      *zap.Logger

	seq    atomic.Uint64
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewEngine creates an Engine over searcher.
func NewEngine(searcher Searcher, opts Options) *Engine {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.OnResult == nil {
		opts.OnResult = func(Result) {}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		searcher: searcher,
		onResult: opts.OnResult,
		debounce: NewDebouncer(opts.Delay),
		log:      opts.Logger.With(zap.String("component", "search")),
	}
}

// Type records the current query text. A query shorter than MinQueryLength
// cancels pending work and delivers an empty result at once; otherwise the
// search runs after the quiet period.
func (e *Engine) Type(q string) {
	if !Searchable(q) {
		e.debounce.Stop()
		seq := e.supersede()
		e.onResult(Result{Seq: seq, Query: q, Bookmarks: []model.BookmarkWithRelations{}})
		return
	}
	e.debounce.Schedule(func() { e.run(q) })
}

// Stop cancels the pending and in-flight searches. Results still arriving
// are discarded.
func (e *Engine) Stop() {
	e.debounce.Stop()
	e.supersede()
}

// supersede issues a new sequence number and cancels the in-flight search.
func (e *Engine) supersede() uint64 {
	seq := e.seq.Add(1)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
	return seq
}

func (e *Engine) run(q string) {
	seq := e.supersede()
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	bookmarks, err := e.searcher.Search(ctx, q)
	if seq != e.seq.Load() {
		e.log.Debug("stale search result discarded", zap.String("query", q), zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		e.log.Warn("search failed", zap.String("query", q), zap.Error(err))
	}
	e.onResult(Result{Seq: seq, Query: q, Bookmarks: bookmarks, Err: err})
}

// Search runs q at once, honouring MinQueryLength.
func (e *Engine) Search(ctx context.Context, q string) ([]model.BookmarkWithRelations, error) {
	if !Searchable(q) {
		return []model.BookmarkWithRelations{}, nil
	}
	return e.searcher.Search(ctx, q)
}

// Searchable reports whether q is long enough to be searched.
func Searchable(q string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(q)) >= MinQueryLength
}
