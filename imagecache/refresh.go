package imagecache

import (
	"context"
	"sync"
	"time"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/logging"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/mapping"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/metrics"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/scheduler"
)

// backgroundTasks tracks detached goroutines so shutdown can drain them.
type backgroundTasks struct {
	wg sync.WaitGroup
}

func newBackgroundTasks() *backgroundTasks {
	return &backgroundTasks{}
}

func (b *backgroundTasks) run(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

func (b *backgroundTasks) wait() {
	b.wg.Wait()
}

// RefreshWorker periodically sweeps the known URL mappings and
// re-fetches entries that have gone stale, so images stay current even
// when nobody is requesting them. The sweep cadence follows the
// scheduler: shorter intervals inside business hours, and the worker
// wakes early at a business-hours boundary so the cadence changes as
// soon as the window flips.
type RefreshWorker struct {
	service  *Service
	mappings *mapping.Store
	sched    *scheduler.Scheduler
	tier     scheduler.Tier
	logger   *logging.Logger
}

// NewRefreshWorker creates a sweep worker that refreshes entries at the
// cadence of the given tier.
func NewRefreshWorker(service *Service, mappings *mapping.Store, sched *scheduler.Scheduler, tier scheduler.Tier, logger *logging.Logger) *RefreshWorker {
	if logger == nil {
		logger = logging.New(logging.INFO, "[refresh]")
	}

	return &RefreshWorker{
		service:  service,
		mappings: mappings,
		sched:    sched,
		tier:     tier,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled. It blocks; callers start it
// in its own goroutine.
func (w *RefreshWorker) Run(ctx context.Context) {
	w.logger.Info("Refresh worker started", map[string]interface{}{
		"tier": string(w.tier),
	})

	for {
		wait := w.nextWake(time.Now())

		select {
		case <-ctx.Done():
			w.logger.Info("Refresh worker stopped", nil)
			return
		case <-time.After(wait):
		}

		w.sweep(ctx)
	}
}

// nextWake returns how long to sleep before the next sweep: the tier's
// current refresh interval, shortened when a business-hours boundary
// lands first.
func (w *RefreshWorker) nextWake(now time.Time) time.Duration {
	wait := w.sched.RefreshIntervalAt(w.tier, now)

	if until := w.sched.GetTimeUntilBusinessHours(now); until > 0 && until < wait {
		wait = until
	}
	if until := w.sched.GetTimeUntilBusinessHoursEnd(now); until > 0 && until < wait {
		wait = until
	}

	return wait
}

// sweep walks every known mapping and refreshes the stale ones. Failures
// are logged and skipped; the stale copy stays servable either way.
func (w *RefreshWorker) sweep(ctx context.Context) {
	urls := w.mappings.URLs()

	w.logger.Debug("Starting refresh sweep", map[string]interface{}{
		"entries": len(urls),
	})

	var refreshed, failed int
	for _, sourceURL := range urls {
		if ctx.Err() != nil {
			return
		}

		if err := w.service.RefreshIfStale(ctx, sourceURL, w.tier, ""); err != nil {
			failed++
			w.logger.LogRefreshFailed(sourceURL, err)
			metrics.RecordBackgroundRefresh(metrics.RefreshFailed)
			continue
		}
		refreshed++
	}

	if refreshed > 0 || failed > 0 {
		w.logger.Info("Refresh sweep finished", map[string]interface{}{
			"checked": len(urls),
			"ok":      refreshed,
			"failed":  failed,
		})
	}
}
