package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"price-scout/src/helpers"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ProgressFunc receives a cumulative snapshot after each emitted result.
// It is called from a single goroutine.
type ProgressFunc func(models.MBatchProgress)

// BatchScheduler drives the fetcher across many parts with pacing between
// dispatches and a bounded number of parts in flight.
type BatchScheduler struct {
	Fetcher  interfaces.IFetcher
	Recorder interfaces.IPriceRecorder
	Workers  int
	Pacing   time.Duration
	Deadline time.Duration
	Logger   *logger.Logger
}

// BatchRun is one invocation of Run. Results yields one entry per dispatched
// part in input order and is closed when the run ends.
type BatchRun struct {
	ID      string
	Total   int
	Results <-chan models.MBatchResult
}

// -----------------------------------------------------------------------------

// NewBatchScheduler creates a scheduler. recorder may be nil.
func NewBatchScheduler(fetcher interfaces.IFetcher, recorder interfaces.IPriceRecorder, cfg models.MBatchConfig, deadline time.Duration, log *logger.Logger) *BatchScheduler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &BatchScheduler{
		Fetcher:  fetcher,
		Recorder: recorder,
		Workers:  workers,
		Pacing:   time.Duration(cfg.PacingMs) * time.Millisecond,
		Deadline: deadline,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// Run starts a batch and returns immediately. Cancelling ctx stops further
// dispatch; parts already in flight finish under their own deadline and are
// still emitted before Results closes.
func (s *BatchScheduler) Run(ctx context.Context, mpns []string, vendors []models.Vendor, onProgress ProgressFunc) (*BatchRun, error) {
	if len(vendors) == 0 {
		return nil, helpers.NewValidationError("at least one vendor is required")
	}

	run := &BatchRun{ID: uuid.NewString(), Total: len(mpns)}
	out := make(chan models.MBatchResult, len(mpns))
	run.Results = out

	slots := make([]chan models.MBatchResult, len(mpns))
	for i := range slots {
		slots[i] = make(chan models.MBatchResult, 1)
	}
	dispatched := make(chan int, 1)

	s.Logger.Info("Batch %s: %d parts across %d vendors (workers=%d, pacing=%v)", run.ID, len(mpns), len(vendors), s.Workers, s.Pacing)

	go s.dispatch(ctx, run.ID, mpns, vendors, slots, dispatched)
	go s.emit(run, slots, dispatched, out, onProgress)
	return run, nil
}

// -----------------------------------------------------------------------------

// RunSync runs a batch to completion and returns every result in input order.
func (s *BatchScheduler) RunSync(ctx context.Context, mpns []string, vendors []models.Vendor, onProgress ProgressFunc) ([]models.MBatchResult, error) {
	run, err := s.Run(ctx, mpns, vendors, onProgress)
	if err != nil {
		return nil, err
	}

	results := make([]models.MBatchResult, 0, run.Total)
	for res := range run.Results {
		results = append(results, res)
	}
	return results, nil
}

// -----------------------------------------------------------------------------

func (s *BatchScheduler) dispatch(ctx context.Context, runID string, mpns []string, vendors []models.Vendor, slots []chan models.MBatchResult, dispatched chan<- int) {
	limit := rate.Inf
	if s.Pacing > 0 {
		limit = rate.Every(s.Pacing)
	}
	limiter := rate.NewLimiter(limit, 1)

	sem := make(chan struct{}, s.Workers)
	fetchCtx := context.WithoutCancel(ctx)
	var g errgroup.Group

	n := 0
	for i, mpn := range mpns {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			<-sem
			break
		}

		g.Go(func() error {
			defer func() { <-sem }()
			slots[i] <- s.runOne(fetchCtx, runID, i, mpn, vendors)
			return nil
		})
		n++
	}

	if n < len(mpns) {
		s.Logger.Warning("Batch %s: cancelled after dispatching %d of %d parts", runID, n, len(mpns))
	}
	dispatched <- n
	g.Wait()
}

// -----------------------------------------------------------------------------

func (s *BatchScheduler) emit(run *BatchRun, slots []chan models.MBatchResult, dispatched <-chan int, out chan<- models.MBatchResult, onProgress ProgressFunc) {
	defer close(out)

	start := time.Now()
	progress := models.MBatchProgress{RunID: run.ID, Total: run.Total}
	total := -1

emitLoop:
	for i := range slots {
		var res models.MBatchResult
		if total < 0 {
			select {
			case res = <-slots[i]:
			case total = <-dispatched:
				if i >= total {
					break emitLoop
				}
				res = <-slots[i]
			}
		} else {
			if i >= total {
				break
			}
			res = <-slots[i]
		}

		progress.Attempted++
		if res.Failed {
			progress.Failed++
		} else {
			progress.Succeeded++
		}
		progress.Elapsed = time.Since(start)

		out <- res
		if onProgress != nil {
			onProgress(progress)
		}
		s.Logger.Info("Batch %s: %d/%d done (%d ok, %d failed) in %v", run.ID, progress.Attempted, progress.Total, progress.Succeeded, progress.Failed, progress.Elapsed.Round(time.Millisecond))
	}
}

// -----------------------------------------------------------------------------

func (s *BatchScheduler) runOne(ctx context.Context, runID string, index int, mpn string, vendors []models.Vendor) models.MBatchResult {
	start := time.Now()
	res := models.MBatchResult{RunID: runID, Index: index, MPN: mpn}

	observations, err := s.Fetcher.FetchAll(ctx, mpn, vendors, s.Deadline)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Failed = true
		res.Error = err.Error()
		s.Logger.Error("Batch %s: part %d %q rejected: %v", runID, index, mpn, err)
		return res
	}

	res.Observations = observations
	res.Best = SelectBest(observations)
	if res.Best == nil {
		res.Failed = true
		res.Error = failureSummary(observations)
		return res
	}

	if s.Recorder != nil {
		s.record(ctx, observations)
	}
	return res
}

// -----------------------------------------------------------------------------

func (s *BatchScheduler) record(ctx context.Context, observations []models.MObservation) {
	recorded := 0
	for _, o := range observations {
		if !o.Succeeded() {
			continue
		}
		if _, err := s.Recorder.Record(ctx, o); err != nil {
			s.Logger.Error("Failed to record %s/%s: %v", o.Vendor, o.MPN, err)
			continue
		}
		recorded++
	}
	s.Logger.Debug("Recorded %d observations", recorded)
}

// -----------------------------------------------------------------------------

func failureSummary(observations []models.MObservation) string {
	counts := make(map[models.ObservationStatus]int)
	for _, o := range observations {
		counts[o.Status]++
	}

	var parts []string
	for _, st := range []models.ObservationStatus{models.StatusNotFound, models.StatusMismatch, models.StatusError} {
		if counts[st] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[st], st))
		}
	}
	return "no vendor returned a price: " + strings.Join(parts, ", ")
}
