package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"price-scout/src/helpers"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	maxBodyBytes   = 8 << 20
)

type AsyncNetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger

	mu     sync.RWMutex
	client *http.Client
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, proxies interfaces.IProxyManager, log *logger.Logger) *AsyncNetworkManager {
	nm := &AsyncNetworkManager{
		Config:       cfg,
		ProxyManager: proxies,
		Logger:       log,
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()

	nm.mu.Lock()
	nm.client = client
	nm.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) httpClient() *http.Client {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and proxy rotation. Not-found
// responses are returned immediately as helpers.ErrNotFound.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string, headers map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("invalid url %q", urlStr), err)
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	return helpers.RetryWithBackoff(ctx, "GET "+reqURL.Host, nm.Config.Network.MaxRetries, retryBaseDelay, nm.Logger,
		func(attempt int) ([]byte, error) {
			if attempt > 0 {
				nm.rotateProxy()
			}
			return nm.do(ctx, finalURL, headers, attempt)
		})
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL string, headers map[string]string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, helpers.NewConfigurationError("failed to build request", err)
	}

	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := nm.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, helpers.NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, helpers.ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
		nm.Logger.Info("Request blocked (%d). Rotating proxy.", resp.StatusCode)
		// Repeated blocks on the last retry: try a fresh proxy list
		if attempt == nm.Config.Network.MaxRetries-1 && nm.Config.Network.Enabled {
			nm.refreshProxies(ctx)
		}
		return nil, helpers.NewNetworkError(fmt.Sprintf("blocked (status %d)", resp.StatusCode), nil)

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, helpers.NewConfigurationError("vendor rejected credentials (status 401)", nil)

	case resp.StatusCode != http.StatusOK:
		return nil, helpers.NewNetworkError(fmt.Sprintf("bad status: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, helpers.NewNetworkError("failed to read body", err)
	}
	return body, nil
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) refreshProxies(ctx context.Context) {
	nm.Logger.Warning("Repeated blocks. Attempting to scrape new proxies...")
	count, err := nm.ProxyManager.RefreshProxies(ctx)
	if err != nil || count == 0 {
		nm.Logger.Error("Failed to refresh proxies: %v", err)
		return
	}
	nm.Logger.Info("Refreshed %d proxies. Retrying...", count)
	nm.rotateProxy()
}
