package datasource

import (
	"context"
	"errors"

	"price-scout/src/helpers"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"
)

// FallbackExtractor tries a fast Primary first and falls back to Secondary
// when the primary errors, finds nothing, or returns a listing that Accept
// rejects.
type FallbackExtractor struct {
	Primary   interfaces.IExtractor
	Secondary interfaces.IExtractor
	Accept    func(requested string, cand *models.MCandidate) bool
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewFallbackExtractor(primary, secondary interfaces.IExtractor, rule models.MatchRule, log *logger.Logger) *FallbackExtractor {
	return &FallbackExtractor{
		Primary:   primary,
		Secondary: secondary,
		Accept: func(requested string, cand *models.MCandidate) bool {
			return MatchMPN(rule, requested, cand.MatchedMPN)
		},
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (f *FallbackExtractor) Vendor() models.Vendor {
	return f.Primary.Vendor()
}

// -----------------------------------------------------------------------------

func (f *FallbackExtractor) Search(ctx context.Context, mpn string) (*models.MCandidate, error) {
	cand, err := f.Primary.Search(ctx, mpn)
	if err == nil && cand != nil && (f.Accept == nil || f.Accept(mpn, cand)) {
		return cand, nil
	}

	// No fallback once ctx is done or after a configuration error.
	if ctx.Err() != nil || helpers.ClassifyError(err) == models.ErrorKindFatalConfig {
		if err != nil {
			return nil, err
		}
		return cand, nil
	}

	switch {
	case err == nil && cand != nil:
		f.Logger.Debug("%s: primary listing %q rejected for %s, trying fallback", f.Vendor(), cand.MatchedMPN, mpn)
	case err == nil || errors.Is(err, helpers.ErrNotFound):
		f.Logger.Debug("%s: primary found nothing for %s, trying fallback", f.Vendor(), mpn)
	default:
		f.Logger.Info("%s: primary failed for %s: %v, trying fallback", f.Vendor(), mpn, err)
	}

	fbCand, fbErr := f.Secondary.Search(ctx, mpn)
	if fbErr == nil && fbCand != nil {
		return fbCand, nil
	}

	// Keep a rejected primary listing so the caller can report the mismatch.
	if cand != nil && err == nil && (fbErr == nil || errors.Is(fbErr, helpers.ErrNotFound)) {
		return cand, nil
	}
	if fbErr == nil {
		return nil, helpers.ErrNotFound
	}
	return nil, fbErr
}
