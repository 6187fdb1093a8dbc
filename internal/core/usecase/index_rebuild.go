package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
)

const (
	TriggerStartup = "startup"
	TriggerManual  = "manual"
	TriggerEvent   = "event"
)

// IndexRebuildUseCase rebuilds the keyword index on startup, on demand and
// when another process announces a corpus change.
type IndexRebuildUseCase struct {
	index    ports.IndexRebuilder
	events   ports.CorpusEvents
	observer ports.IndexObserver
	timeout  time.Duration
	now      func() time.Time
}

func NewIndexRebuildUseCase(
	index ports.IndexRebuilder,
	events ports.CorpusEvents,
	observer ports.IndexObserver,
	timeout time.Duration,
) *IndexRebuildUseCase {
	if observer == nil {
		observer = ports.NopIndexObserver{}
	}
	return &IndexRebuildUseCase{
		index:    index,
		events:   events,
		observer: observer,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Rebuild is the on-demand entry point.
func (uc *IndexRebuildUseCase) Rebuild(ctx context.Context) (int, error) {
	return uc.rebuild(ctx, TriggerManual)
}

func (uc *IndexRebuildUseCase) Startup(ctx context.Context) (int, error) {
	return uc.rebuild(ctx, TriggerStartup)
}

// HandleCorpusUpdated reacts to a corpus change event.
func (uc *IndexRebuildUseCase) HandleCorpusUpdated(ctx context.Context, event domain.CorpusEvent) error {
	if !event.PublishedAt.IsZero() {
		uc.observer.ObserveEventLag(uc.now().Sub(event.PublishedAt))
	}
	slog.Info("corpus_update_received", "reason", event.Reason, "chunk_count", event.ChunkCount)

	_, err := uc.rebuild(ctx, TriggerEvent)
	return err
}

// Listen subscribes to corpus events until ctx is done. Without an event bus
// it returns immediately.
func (uc *IndexRebuildUseCase) Listen(ctx context.Context) error {
	if uc.events == nil {
		return nil
	}
	return uc.events.SubscribeCorpusUpdated(ctx, uc.HandleCorpusUpdated)
}

// Notify announces a corpus change to every subscriber.
func (uc *IndexRebuildUseCase) Notify(ctx context.Context, reason string, chunkCount int) error {
	if uc.events == nil {
		return domain.WrapError(domain.ErrConfiguration, "notify corpus update", errors.New("no event bus configured"))
	}
	return uc.events.PublishCorpusUpdated(ctx, domain.CorpusEvent{
		Reason:      reason,
		ChunkCount:  chunkCount,
		PublishedAt: uc.now().UTC(),
	})
}

func (uc *IndexRebuildUseCase) rebuild(ctx context.Context, trigger string) (int, error) {
	if uc.index == nil {
		return 0, domain.WrapError(domain.ErrCorpusUnavailable, "rebuild keyword index", errors.New("no index configured"))
	}
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	uc.observer.StartRebuild()
	start := uc.now()
	n, err := uc.index.Rebuild(ctx)
	uc.observer.FinishRebuild(trigger, n, uc.now().Sub(start), err)
	if err != nil {
		return 0, fmt.Errorf("rebuild keyword index (%s): %w", trigger, err)
	}
	return n, nil
}

// CorpusWatchUseCase polls the corpus fingerprint and publishes a corpus
// event whenever it changes.
type CorpusWatchUseCase struct {
	watcher ports.CorpusWatcher
	events   ports.CorpusEvents
	observer ports.WatchObserver
	now      func() time.Time

	last *domain.CorpusFingerprint
}

func NewCorpusWatchUseCase(watcher ports.CorpusWatcher, events ports.CorpusEvents) *CorpusWatchUseCase {
	return &CorpusWatchUseCase{watcher: watcher, events: events, now: time.Now}
}

func (uc *CorpusWatchUseCase) WithObserver(o ports.WatchObserver) *CorpusWatchUseCase {
	uc.observer = o
	return uc
}

// CheckOnce compares the current fingerprint with the previous one. The first
// call only records a baseline.
func (uc *CorpusWatchUseCase) CheckOnce(ctx context.Context) (changed bool, err error) {
	if uc.observer != nil {
		defer func() { uc.observer.ObservePoll(changed, err) }()
	}
	fp, err := uc.watcher.Fingerprint(ctx)
	if err != nil {
		return false, fmt.Errorf("read corpus fingerprint: %w", err)
	}
	if uc.last == nil {
		uc.last = &fp
		slog.Info("corpus_watch_baseline", "chunk_count", fp.ChunkCount, "last_updated_at", fp.LastUpdatedAt)
		return false, nil
	}
	if uc.last.Equal(fp) {
		return false, nil
	}

	err = uc.events.PublishCorpusUpdated(ctx, domain.CorpusEvent{
		Reason:      "corpus_changed",
		ChunkCount:  fp.ChunkCount,
		PublishedAt: uc.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("publish corpus update: %w", err)
	}
	slog.Info("corpus_change_published", "previous_count", uc.last.ChunkCount, "chunk_count", fp.ChunkCount)
	uc.last = &fp
	return true, nil
}

// Run polls every interval until ctx is done. Poll failures are logged and
// retried on the next tick.
func (uc *CorpusWatchUseCase) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := uc.CheckOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("corpus_watch_failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
