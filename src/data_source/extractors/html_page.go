package extractors

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	datasource "price-scout/src/data_source"
	"price-scout/src/helpers"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"

	"github.com/gocolly/colly"
)

// StrategyPage marks candidates read from a rendered search results page.
const StrategyPage = "page"

// HTMLPageExtractor reads the first listing on a vendor search page using
// CSS selectors from configuration. Concurrent page loads are bounded by a
// shared PagePool.
type HTMLPageExtractor struct {
	vendor  models.Vendor
	Config  models.MVendorPageConfig
	Pool    *datasource.PagePool
	Proxies interfaces.IProxyManager
	Timeout time.Duration
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHTMLPageExtractor(
	v models.Vendor,
	cfg models.MVendorPageConfig,
	pool *datasource.PagePool,
	proxies interfaces.IProxyManager,
	timeout time.Duration,
	log *logger.Logger,
) *HTMLPageExtractor {
	return &HTMLPageExtractor{
		vendor:  v,
		Config:  cfg,
		Pool:    pool,
		Proxies: proxies,
		Timeout: timeout,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *HTMLPageExtractor) Vendor() models.Vendor {
	return s.vendor
}

// -----------------------------------------------------------------------------

type pageResult struct {
	cand   *models.MCandidate
	status int
	err    error
}

// Search loads the search page for mpn. colly has no context support, so the
// visit runs in its own goroutine with a request timeout capped by ctx.
func (s *HTMLPageExtractor) Search(ctx context.Context, mpn string) (*models.MCandidate, error) {
	if err := s.Pool.Acquire(ctx); err != nil {
		return nil, err
	}

	c, err := s.newCollector(ctx)
	if err != nil {
		s.Pool.Release()
		return nil, err
	}

	var (
		mu  sync.Mutex
		res pageResult
	)
	c.OnHTML(s.Config.Item, func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if res.cand == nil {
			res.cand = s.readListing(e, mpn)
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		res.status = r.StatusCode
		mu.Unlock()
	})

	target := ExpandURL(s.Config.URL, mpn)
	done := make(chan pageResult, 1)
	go func() {
		defer s.Pool.Release()
		visitErr := c.Visit(target)
		mu.Lock()
		out := res
		mu.Unlock()
		out.err = visitErr
		done <- out
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return s.finish(out, mpn)
	}
}

// -----------------------------------------------------------------------------

func (s *HTMLPageExtractor) newCollector(ctx context.Context) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.UserAgent(s.Proxies.GetUserAgent()),
		colly.AllowURLRevisit(),
	)

	timeout := s.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < timeout || timeout <= 0 {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	c.SetRequestTimeout(timeout)

	if proxy, _ := s.Proxies.GetCurrentProxy(); proxy != "" {
		if err := c.SetProxy(proxy); err != nil {
			return nil, helpers.NewConfigurationError("invalid proxy "+proxy, err)
		}
	}
	return c, nil
}

// -----------------------------------------------------------------------------

func (s *HTMLPageExtractor) finish(out pageResult, mpn string) (*models.MCandidate, error) {
	switch {
	case out.status == http.StatusNotFound:
		return nil, helpers.ErrNotFound
	case out.err != nil:
		return nil, helpers.NewNetworkError(string(s.vendor)+" page load failed", out.err)
	case out.cand == nil:
		s.Logger.Debug("%s: no listing matched %q for %s", s.vendor, s.Config.Item, mpn)
		return nil, helpers.ErrNotFound
	}
	return out.cand, nil
}

// -----------------------------------------------------------------------------

func (s *HTMLPageExtractor) readListing(e *colly.HTMLElement, mpn string) *models.MCandidate {
	cand := &models.MCandidate{
		ProductName: childText(e, s.Config.Name),
		Price:       ParsePrice(childText(e, s.Config.Price)),
		Currency:    "AUD",
		InStock:     ParseStock(childText(e, s.Config.Stock)),
		Strategy:    StrategyPage,
	}

	// Without an MPN field, accept a title that embeds the part number.
	cand.MatchedMPN = childText(e, s.Config.MPN)
	if want := datasource.NormalizeMPN(mpn); cand.MatchedMPN == "" && want != "" &&
		strings.Contains(datasource.NormalizeMPN(cand.ProductName), want) {
		cand.MatchedMPN = mpn
	}

	link := e.Attr("href")
	if s.Config.Link != "" {
		link = e.ChildAttr(s.Config.Link, "href")
	}
	if link != "" {
		cand.URL = e.Request.AbsoluteURL(link)
	}
	return cand
}

// -----------------------------------------------------------------------------

func childText(e *colly.HTMLElement, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(e.ChildText(selector))
}
