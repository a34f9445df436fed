package filesystem

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/lister"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/options"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/resolver"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/services"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
)

var errClosed = errors.New("stream closed")

// task is a directory waiting to be listed. real is its canonical path,
// which differs from path below a followed symlink.
type task struct {
	path  string
	real  string
	depth int
	scope *services.IgnoreScope
}

// batch holds the children of the directory currently being expanded
// that have not been resolved yet.
type batch struct {
	task    task
	pending []lister.RawEntry
	scope   *services.IgnoreScope
}

type resolved struct {
	entry *types.Entry
	kind  types.Kind
	real  string
	err   error
}

// Stream is a demand-driven, depth-first traversal of one root directory.
//
// Nothing is read from disk until the consumer asks for entries. Each Read
// lists at most the directories and resolves at most the entries needed to
// satisfy it, bounded by the high-water mark. A single consumer goroutine
// calls Read (or drains Events); Pause, Resume, Close, State and Stats may
// be called from anywhere.
type Stream struct {
	id       uuid.UUID
	cfg      *options.Config
	lister   lister.Lister
	resolver *resolver.Resolver
	ignores  *services.IgnoreLoader
	metrics  *common.TraversalMetrics
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// owned by the consumer goroutine, serialised by readMu
	readMu    sync.Mutex
	frontier  []task
	current   *batch
	buffer    []types.Entry
	fatal     error
	exhausted bool
	done      bool

	mu       sync.Mutex
	state    types.State
	paused   bool
	resumeCh chan struct{}
	pumping  bool
	warnings []error

	notifyMu sync.Mutex
	finish   sync.Once
}

// New validates opts and prepares a traversal of root. Configuration
// errors are returned here; no I/O happens until the first Read.
func New(root string, opts options.TraversalOptions) (*Stream, error) {
	return NewWithLister(root, opts, lister.New())
}

// NewWithLister is New with a custom directory lister
func NewWithLister(root string, opts options.TraversalOptions, l lister.Lister) (*Stream, error) {
	cfg, err := opts.Compile(root)
	if err != nil {
		return nil, err
	}
	return newStream(cfg, l), nil
}

func newStream(cfg *options.Config, l lister.Lister) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	res := resolver.New(cfg.Root, cfg.AlwaysStat, cfg.Lstat)

	return &Stream{
		id:       id,
		cfg:      cfg,
		lister:   l,
		resolver: res,
		ignores:  services.NewIgnoreLoader(cfg.IgnoreFile),
		metrics:  common.NewTraversalMetrics(),
		logger: cfg.Logger.With().
			Str("traversal_id", id.String()).
			Str("root", cfg.Root).
			Logger(),
		ctx:      ctx,
		cancel:   cancel,
		frontier: []task{{path: cfg.Root, real: res.RootReal(), depth: 0}},
		state:    types.StateIdle,
	}
}

// ID identifies the traversal in log output
func (s *Stream) ID() uuid.UUID { return s.id }

// Root returns the absolute traversal root
func (s *Stream) Root() string { return s.cfg.Root }

// State returns the current lifecycle state
func (s *Stream) State() types.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the traversal counters
func (s *Stream) Stats() common.TraversalStats {
	return s.metrics.Snapshot()
}

// Read returns up to n entries. It returns io.EOF once the traversal is
// complete or closed, ErrPaused while paused, and a *common.FatalError
// exactly once if the traversal aborts, after which it returns io.EOF.
// A non-positive n requests one high-water mark of entries.
//
// If ctx is cancelled the call returns ctx.Err() and the stream stays
// usable; the interrupted work is retried by the next Read.
func (s *Stream) Read(ctx context.Context, n int) ([]types.Entry, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if s.done || s.closed.Load() {
		return nil, io.EOF
	}
	if s.isPaused() {
		return nil, common.ErrPaused
	}
	if n <= 0 {
		n = s.cfg.HighWaterMark
	}

	// a held fatal error means no further I/O
	var err error
	if s.fatal == nil {
		err = s.fill(ctx, n)
	}
	if s.closed.Load() {
		s.buffer = nil
		return nil, io.EOF
	}
	s.flushWarnings()

	var fatal *common.FatalError
	switch {
	case errors.As(err, &fatal):
		s.fatal = fatal
	case err != nil:
		return nil, err
	}

	if s.fatal != nil {
		if s.isPaused() {
			return nil, common.ErrPaused
		}
		err := s.fatal
		s.fatal = nil
		s.buffer = nil
		s.terminate(true)
		return nil, err
	}

	count := min(n, len(s.buffer))
	if count == 0 {
		if s.exhausted {
			s.terminate(false)
			return nil, io.EOF
		}
		if s.isPaused() {
			return nil, common.ErrPaused
		}
	}

	out := make([]types.Entry, count)
	copy(out, s.buffer)
	s.buffer = s.buffer[count:]
	s.metrics.AddEmitted(count)

	if len(s.buffer) > 0 {
		s.setState(types.StateDraining)
	} else {
		s.setState(types.StateIdle)
	}
	return out, nil
}

// Pause suspends the traversal. Warnings and a fatal error produced by a
// Read already in progress are held until Resume.
func (s *Stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.closed.Load() {
		return
	}
	s.paused = true
	s.resumeCh = make(chan struct{})
}

// Resume continues a paused traversal. Warnings queued while paused are
// passed to OnWarning in order before Resume returns, on the caller's
// goroutine.
func (s *Stream) Resume() {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = false
	close(s.resumeCh)
	s.mu.Unlock()

	s.flushWarnings()
}

// Close cancels the traversal. In-flight listing and stat calls finish
// but their results are discarded, and nothing is delivered afterwards.
func (s *Stream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	s.warnings = nil
	if s.paused {
		s.paused = false
		close(s.resumeCh)
	}
	s.mu.Unlock()

	s.finish.Do(func() {
		s.metrics.Finish(false)
		s.setState(types.StateTerminal)
		s.logger.Debug().Msg("traversal closed")
	})
	return nil
}

// fill grows the buffer to want entries, expanding at most one directory
// at a time. It stops early when the traversal is paused or closed.
func (s *Stream) fill(ctx context.Context, want int) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	for len(s.buffer) < want {
		if s.closed.Load() || s.isPaused() {
			return nil
		}

		if s.current != nil && len(s.current.pending) > 0 {
			if err := s.resolveSlice(opCtx, want-len(s.buffer)); err != nil {
				return err
			}
			continue
		}
		s.current = nil

		if len(s.frontier) == 0 {
			s.exhausted = true
			return nil
		}
		next := s.frontier[len(s.frontier)-1]
		s.frontier = s.frontier[:len(s.frontier)-1]
		if err := s.expand(opCtx, next); err != nil {
			return err
		}
	}
	return nil
}

// expand lists one directory and makes its children the current batch
func (s *Stream) expand(ctx context.Context, t task) error {
	s.setState(types.StateExpanding)

	raw, err := s.lister.List(ctx, t.path)
	if s.interrupted(ctx) {
		s.frontier = append(s.frontier, t)
		return s.interruptErr(ctx)
	}
	if err != nil {
		return s.handleError(err)
	}
	s.metrics.AddDirListed()

	scope := t.scope
	if s.ignores.Listed(raw) {
		loaded, err := s.ignores.Load(t.path, t.scope)
		if err != nil {
			if ferr := s.handleError(err); ferr != nil {
				return ferr
			}
		}
		scope = loaded
	}

	pending := raw
	if scope != nil {
		pending = make([]lister.RawEntry, 0, len(raw))
		for _, r := range raw {
			// links are checked again as directories once resolved
			if scope.Ignored(filepath.Join(t.path, r.Name), r.Type.IsDir()) {
				s.logger.Debug().Str("path", filepath.Join(t.path, r.Name)).Msg("ignoring entry")
				continue
			}
			pending = append(pending, r)
		}
	}

	s.logger.Debug().
		Str("path", t.path).
		Int("depth", t.depth).
		Int("entries", len(pending)).
		Msg("expanding directory")

	s.current = &batch{task: t, pending: pending, scope: scope}
	return nil
}

// resolveSlice resolves the next slice of the current batch on the worker
// pool, then applies the accept/reject decisions in listing order.
func (s *Stream) resolveSlice(ctx context.Context, demand int) error {
	s.setState(types.StateExpanding)
	b := s.current

	size := min(demand, s.cfg.HighWaterMark, len(b.pending))
	slice := b.pending[:size]

	mapper := iter.Mapper[lister.RawEntry, resolved]{MaxGoroutines: s.cfg.Workers}
	results := mapper.Map(slice, func(raw *lister.RawEntry) resolved {
		return s.resolve(ctx, b.task, *raw)
	})
	if s.interrupted(ctx) {
		return s.interruptErr(ctx)
	}

	b.pending = b.pending[size:]
	s.metrics.AddResolved(size)

	for _, r := range results {
		if r.err != nil {
			if ferr := s.handleError(r.err); ferr != nil {
				return ferr
			}
			continue
		}
		s.accept(b, r)
	}
	return nil
}

func (s *Stream) resolve(ctx context.Context, parent task, raw lister.RawEntry) resolved {
	entry, err := s.resolver.Resolve(ctx, raw, parent.path)
	if err != nil {
		return resolved{err: err}
	}
	kind, real, err := s.resolver.Classify(ctx, entry, parent.real)
	return resolved{entry: entry, kind: kind, real: real, err: err}
}

func (s *Stream) accept(b *batch, r resolved) {
	entry := r.entry
	entry.Kind = r.kind
	switch {
	case r.kind == types.KindDirectory:
		if entry.IsSymlink() && b.scope != nil && b.scope.Ignored(entry.FullPath, true) {
			return
		}
		if !s.cfg.DirectoryFilter(entry) {
			return
		}
		if b.task.depth+1 <= s.cfg.MaxDepth {
			s.frontier = append(s.frontier, task{
				path:  entry.FullPath,
				real:  r.real,
				depth: b.task.depth + 1,
				scope: b.scope,
			})
		}
		if s.cfg.Type.WantsDirectories() {
			s.buffer = append(s.buffer, *entry)
		}
	case r.kind == types.KindFile, r.kind == types.KindOther && s.cfg.Type.WantsEverything():
		if s.cfg.Type.WantsFiles() && s.cfg.FileFilter(entry) {
			s.buffer = append(s.buffer, *entry)
		}
	}
}

// handleError queues normal-flow errors as warnings and turns everything
// else into a FatalError.
func (s *Stream) handleError(err error) error {
	if common.IsNormalFlow(err) {
		s.warn(err)
		return nil
	}
	s.logger.Error().Err(err).Msg("traversal aborted")
	return &common.FatalError{Root: s.cfg.Root, Err: err}
}

func (s *Stream) warn(err error) {
	s.metrics.AddWarning()
	s.logger.Warn().Err(err).Str("code", string(common.Classify(err))).Msg("traversal warning")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	s.warnings = append(s.warnings, err)
}

// drainWarnings takes the queued warnings unless the stream is paused
func (s *Stream) drainWarnings() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.closed.Load() {
		return nil
	}
	ws := s.warnings
	s.warnings = nil
	return ws
}

// flushWarnings delivers queued warnings to OnWarning. The event pump
// delivers its own.
func (s *Stream) flushWarnings() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	pumping := s.pumping
	s.mu.Unlock()
	if pumping {
		return
	}

	for _, w := range s.drainWarnings() {
		if s.closed.Load() {
			return
		}
		if s.cfg.OnWarning != nil {
			s.cfg.OnWarning(w)
		}
	}
}

// waitResumed blocks while the stream is paused
func (s *Stream) waitResumed(ctx context.Context) error {
	s.mu.Lock()
	if !s.paused {
		s.mu.Unlock()
		return nil
	}
	ch := s.resumeCh
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return io.EOF
	}
}

func (s *Stream) terminate(fatal bool) {
	s.done = true
	s.finish.Do(func() {
		s.metrics.Finish(fatal)
		s.setState(types.StateTerminal)
		s.logPerformanceStats()
	})
}

// opContext returns a context cancelled by either ctx or Close
func (s *Stream) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *Stream) interrupted(ctx context.Context) bool {
	return s.closed.Load() || ctx.Err() != nil
}

func (s *Stream) interruptErr(ctx context.Context) error {
	if s.closed.Load() {
		return errClosed
	}
	return ctx.Err()
}

func (s *Stream) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Stream) setState(state types.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == types.StateTerminal {
		return
	}
	s.state = state
}

// logPerformanceStats logs traversal performance metrics
func (s *Stream) logPerformanceStats() {
	stats := s.metrics.Snapshot()
	duration := stats.Duration()

	event := s.logger.Info().
		Int64("dirs", stats.DirsListed).
		Int64("resolved", stats.EntriesResolved).
		Int64("emitted", stats.EntriesEmitted).
		Int64("warnings", stats.Warnings).
		Bool("fatal", stats.Fatal).
		Dur("duration", duration)
	if secs := duration.Seconds(); secs > 0 {
		event = event.Float64("entries_per_sec", float64(stats.EntriesResolved)/secs)
	}
	event.Msg("traversal completed")
}
