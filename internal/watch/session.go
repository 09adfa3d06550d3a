package watch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler performs the work a batch of changes calls for.
type Handler interface {
	// Regenerate rewrites the build description. It reports whether
	// anything was regenerated; a handler may skip when the recorded inputs
	// are unchanged.
	Regenerate(ctx context.Context, impact *Impact) (bool, error)
	// Rebuild runs the executor against the current description.
	Rebuild(ctx context.Context) error
}

// Session ties a FileWatcher to a Handler. Batches arriving while one is
// being handled are dropped; the next change starts a new batch.
type Session struct {
	watcher  *FileWatcher
	handler  Handler
	manifest string
	run      bool
	logger   *zap.Logger

	ctx      context.Context
	mu       sync.Mutex
	building bool
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Watch Options
	// Manifest is the manifest file name used to classify changes
	Manifest string
	// Run also runs the executor after each regeneration or source edit
	Run bool
}

// NewSession creates a session. Call Run to start it.
func NewSession(opts SessionOptions, handler Handler) (*Session, error) {
	s := &Session{
		handler:  handler,
		manifest: opts.Manifest,
		run:      opts.Run,
		logger:   opts.Watch.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	w, err := NewFileWatcher(opts.Watch, s.HandleChanges)
	if err != nil {
		return nil, err
	}
	s.watcher = w
	return s, nil
}

// Run performs an initial regeneration, then watches until ctx is done.
// A failing initial generation is logged, not fatal, so a broken manifest
// can be fixed while watching.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.handler.Regenerate(ctx, &Impact{Scope: ScopeRegenerate}); err != nil {
		s.logger.Error("initial generation failed", zap.Error(err))
	}

	if err := s.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	s.logger.Debug("watching", zap.Strings("dirs", s.watcher.Watched()))

	<-ctx.Done()
	return s.watcher.Stop()
}

// HandleChanges is the debounced callback. It is exported for callers that
// feed changes from another source.
func (s *Session) HandleChanges(changes []Change) error {
	s.mu.Lock()
	if s.building {
		s.mu.Unlock()
		s.logger.Debug("generation already in progress, skipping batch")
		return nil
	}
	s.building = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.building = false
		s.mu.Unlock()
	}()

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	impact := AnalyzeImpact(changes, s.manifest)
	s.logger.Debug("changes analyzed",
		zap.String("scope", impact.Scope.String()),
		zap.Int("changes", len(changes)),
	)

	switch impact.Scope {
	case ScopeRegenerate:
		regenerated, err := s.handler.Regenerate(ctx, impact)
		if err != nil {
			return err
		}
		if s.run && (regenerated || len(impact.Modified) > 0) {
			return s.handler.Rebuild(ctx)
		}
	case ScopeRebuild:
		if s.run {
			return s.handler.Rebuild(ctx)
		}
	}
	return nil
}
