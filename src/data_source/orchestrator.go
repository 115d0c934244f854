package datasource

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"price-scout/src/helpers"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"
)

// FetchOrchestrator fans a single part lookup out to every requested vendor
// and collects exactly one observation per vendor under a deadline.
type FetchOrchestrator struct {
	Extractors  map[models.Vendor]interfaces.IExtractor
	Rules       map[models.Vendor]models.MatchRule
	DefaultRule models.MatchRule
	Concurrency int
	Logger      *logger.Logger
	Now         func() time.Time
	mu          sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewFetchOrchestrator(cfg models.MFetchConfig, log *logger.Logger) *FetchOrchestrator {
	rule := cfg.MatchRule
	if rule == "" {
		rule = models.MatchNormalized
	}
	return &FetchOrchestrator{
		Extractors:  make(map[models.Vendor]interfaces.IExtractor),
		Rules:       make(map[models.Vendor]models.MatchRule),
		DefaultRule: rule,
		Concurrency: cfg.VendorConcurrency,
		Logger:      log,
		Now:         time.Now,
	}
}

// -----------------------------------------------------------------------------

// AddExtractor registers an extractor for its vendor. An empty rule uses the
// orchestrator default.
func (o *FetchOrchestrator) AddExtractor(ex interfaces.IExtractor, rule models.MatchRule) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := ex.Vendor()
	if _, exists := o.Extractors[v]; exists {
		return fmt.Errorf("extractor for %s already exists", v)
	}

	o.Extractors[v] = ex
	if rule != "" {
		o.Rules[v] = rule
	}
	o.Logger.Info("Added extractor: %s", v)
	return nil
}

// -----------------------------------------------------------------------------

// RemoveExtractor unregisters a vendor
func (o *FetchOrchestrator) RemoveExtractor(v models.Vendor) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.Extractors[v]; !exists {
		return fmt.Errorf("extractor for %s not found", v)
	}

	delete(o.Extractors, v)
	delete(o.Rules, v)
	o.Logger.Info("Removed extractor: %s", v)
	return nil
}

// -----------------------------------------------------------------------------

// GetExtractor retrieves the extractor registered for a vendor
func (o *FetchOrchestrator) GetExtractor(v models.Vendor) (interfaces.IExtractor, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ex, exists := o.Extractors[v]
	if !exists {
		return nil, fmt.Errorf("extractor for %s not found", v)
	}
	return ex, nil
}

// -----------------------------------------------------------------------------

// Vendors returns the registered vendors in priority order
func (o *FetchOrchestrator) Vendors() []models.Vendor {
	o.mu.RLock()
	defer o.mu.RUnlock()

	list := make([]models.Vendor, 0, len(o.Extractors))
	for v := range o.Extractors {
		list = append(list, v)
	}
	models.SortVendors(list)
	return list
}

// -----------------------------------------------------------------------------

// RuleFor returns the match rule applied to a vendor's listings.
func (o *FetchOrchestrator) RuleFor(v models.Vendor) models.MatchRule {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if r, ok := o.Rules[v]; ok {
		return r
	}
	return o.DefaultRule
}

// -----------------------------------------------------------------------------

type fetchTarget struct {
	extractor interfaces.IExtractor
	rule      models.MatchRule
}

// FetchAll queries every vendor concurrently and returns one observation per
// vendor, ordered by vendor priority. It returns no later than deadline;
// vendors that have not answered by then are reported as timed out. The error
// is only set for invalid arguments.
func (o *FetchOrchestrator) FetchAll(ctx context.Context, mpn string, vendors []models.Vendor, deadline time.Duration) ([]models.MObservation, error) {
	mpn = strings.TrimSpace(mpn)
	if mpn == "" {
		return nil, helpers.NewValidationError("mpn cannot be empty")
	}
	if deadline <= 0 {
		return nil, helpers.NewValidationError("deadline must be positive, got %v", deadline)
	}
	if len(vendors) == 0 {
		return nil, helpers.NewValidationError("at least one vendor is required")
	}

	targets, err := o.resolve(vendors)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Buffered to len(targets) so vendors finishing after the deadline never block.
	results := make(chan models.MObservation, len(targets))
	limit := o.Concurrency
	if limit <= 0 || limit > len(targets) {
		limit = len(targets)
	}
	sem := make(chan struct{}, limit)

	var (
		startedMu sync.Mutex
		started   = make(map[models.Vendor]bool, len(targets))
	)
	for _, t := range targets {
		go func(t fetchTarget) {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			startedMu.Lock()
			started[t.extractor.Vendor()] = true
			startedMu.Unlock()
			results <- o.observe(ctx, t, mpn)
		}(t)
	}

	pending := make(map[models.Vendor]bool, len(targets))
	for _, t := range targets {
		pending[t.extractor.Vendor()] = true
	}

	observations := collectResults(ctx, results, pending)

	startedMu.Lock()
	for _, t := range targets {
		v := t.extractor.Vendor()
		if pending[v] {
			observations = append(observations, o.timedOut(ctx, v, mpn, deadline, started[v]))
		}
	}
	startedMu.Unlock()

	sortObservations(observations)
	o.logSummary(mpn, observations)
	return observations, nil
}

// -----------------------------------------------------------------------------

// collectResults reads observations until every pending vendor has answered
// or ctx is done. Answers already buffered when ctx ends are still taken.
// Collected vendors are removed from pending.
func collectResults(ctx context.Context, results <-chan models.MObservation, pending map[models.Vendor]bool) []models.MObservation {
	observations := make([]models.MObservation, 0, len(pending))
	take := func(obs models.MObservation) {
		if pending[obs.Vendor] {
			delete(pending, obs.Vendor)
			observations = append(observations, obs)
		}
	}

collect:
	for len(pending) > 0 {
		select {
		case obs := <-results:
			take(obs)
		case <-ctx.Done():
			break collect
		}
	}

drain:
	for len(pending) > 0 {
		select {
		case obs := <-results:
			take(obs)
		default:
			break drain
		}
	}
	return observations
}

// -----------------------------------------------------------------------------

func (o *FetchOrchestrator) resolve(vendors []models.Vendor) ([]fetchTarget, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	seen := make(map[models.Vendor]bool, len(vendors))
	targets := make([]fetchTarget, 0, len(vendors))
	for _, v := range vendors {
		if seen[v] {
			continue
		}
		seen[v] = true

		ex, ok := o.Extractors[v]
		if !ok {
			return nil, helpers.NewValidationError("vendor %q is not registered", v)
		}
		rule, ok := o.Rules[v]
		if !ok {
			rule = o.DefaultRule
		}
		targets = append(targets, fetchTarget{extractor: ex, rule: rule})
	}
	return targets, nil
}

// -----------------------------------------------------------------------------

// observe runs one extractor and turns its outcome into an observation.
// Panics are recovered into error observations.
func (o *FetchOrchestrator) observe(ctx context.Context, t fetchTarget, mpn string) (obs models.MObservation) {
	vendor := t.extractor.Vendor()
	obs = models.MObservation{
		Vendor:  vendor,
		MPN:     mpn,
		InStock: models.StockUnknown,
	}

	defer func() {
		if r := recover(); r != nil {
			o.Logger.Error("%s: extractor panicked for %s: %v\n%s", vendor, mpn, r, debug.Stack())
			obs.Status = models.StatusError
			obs.ErrorKind = models.ErrorKindPanic
			obs.Message = fmt.Sprintf("extractor panicked: %v", r)
			obs.Price = nil
			obs.FetchedAt = o.Now().UTC()
		}
	}()

	cand, err := t.extractor.Search(ctx, mpn)
	obs.FetchedAt = o.Now().UTC()

	switch {
	case errors.Is(err, helpers.ErrNotFound) || (err == nil && cand == nil):
		obs.Status = models.StatusNotFound
		obs.Message = "no listing found"

	case err != nil:
		obs.Status = models.StatusError
		obs.Message = err.Error()
		obs.ErrorKind = helpers.ClassifyError(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			obs.ErrorKind = models.ErrorKindTimeout
		}
		if obs.ErrorKind == models.ErrorKindFatalConfig {
			o.Logger.Error("%s: configuration error: %v", vendor, err)
		}

	default:
		fillFromCandidate(&obs, cand)
		switch {
		case !MatchMPN(t.rule, mpn, cand.MatchedMPN):
			obs.Status = models.StatusMismatch
			obs.Message = MismatchMessage(t.rule, mpn, cand.MatchedMPN)
			obs.Price = nil
		case cand.Price == nil:
			obs.Status = models.StatusNotFound
			obs.Message = "listing has no price"
		case cand.Price.IsNegative():
			obs.Status = models.StatusError
			obs.ErrorKind = models.ErrorKindTransient
			obs.Message = fmt.Sprintf("negative price %s", cand.Price)
			obs.Price = nil
		default:
			obs.Status = models.StatusSuccess
		}
	}
	return obs
}

// -----------------------------------------------------------------------------

func fillFromCandidate(obs *models.MObservation, cand *models.MCandidate) {
	obs.MatchedMPN = cand.MatchedMPN
	obs.ProductName = cand.ProductName
	obs.URL = cand.URL
	obs.Strategy = cand.Strategy
	obs.Currency = cand.Currency
	if obs.Currency == "" {
		obs.Currency = "AUD"
	}
	if cand.InStock != "" {
		obs.InStock = cand.InStock
	}
	if cand.Price != nil {
		p := *cand.Price
		obs.Price = &p
	}
}

// -----------------------------------------------------------------------------

// timedOut reports a vendor with no answer. started tells a vendor that ran
// out of time apart from one that never got a concurrency slot.
func (o *FetchOrchestrator) timedOut(ctx context.Context, v models.Vendor, mpn string, deadline time.Duration, started bool) models.MObservation {
	var msg string
	switch {
	case errors.Is(ctx.Err(), context.Canceled) && started:
		msg = "cancelled before completion"
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "cancelled before start"
	case started:
		msg = fmt.Sprintf("timed out after %v", deadline)
	default:
		msg = fmt.Sprintf("not started before deadline of %v", deadline)
	}
	return models.MObservation{
		Vendor:    v,
		MPN:       mpn,
		InStock:   models.StockUnknown,
		FetchedAt: o.Now().UTC(),
		Status:    models.StatusError,
		ErrorKind: models.ErrorKindTimeout,
		Message:   msg,
	}
}

// -----------------------------------------------------------------------------

func (o *FetchOrchestrator) logSummary(mpn string, observations []models.MObservation) {
	counts := make(map[models.ObservationStatus]int, 4)
	for _, obs := range observations {
		counts[obs.Status]++
	}
	o.Logger.Info("Fetched %s from %d vendors: %d success, %d not found, %d mismatch, %d error",
		mpn, len(observations),
		counts[models.StatusSuccess], counts[models.StatusNotFound],
		counts[models.StatusMismatch], counts[models.StatusError])
}

// -----------------------------------------------------------------------------

func sortObservations(obs []models.MObservation) {
	vendors := make([]models.Vendor, len(obs))
	byVendor := make(map[models.Vendor]models.MObservation, len(obs))
	for i, o := range obs {
		vendors[i] = o.Vendor
		byVendor[o.Vendor] = o
	}
	models.SortVendors(vendors)
	for i, v := range vendors {
		obs[i] = byVendor[v]
	}
}
