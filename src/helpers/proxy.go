package helpers

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"price-scout/src/logger"
)

const (
	proxyListURL  = "https://www.sslproxies.org/"
	maxProxies    = 50
	fallbackAgent = "Mozilla/5.0 (Go-http-client/1.1)"
)

var proxyRowRe = regexp.MustCompile(`<tr><td>(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})</td><td>(\d+)</td>`)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// -----------------------------------------------------------------------------

// ProxyManager rotates outbound proxies and user agents for vendor requests.
type ProxyManager struct {
	proxies    []string
	userAgents []string
	index      int
	mu         sync.Mutex
	logger     *logger.Logger
	httpClient *http.Client
}

// -----------------------------------------------------------------------------

// NewProxyManager keeps only well-formed proxies. A non-empty userAgent pins
// the agent instead of rotating.
func NewProxyManager(proxies []string, userAgent string, log *logger.Logger) *ProxyManager {
	var valid []string
	for _, p := range proxies {
		if ValidateProxy(p) {
			valid = append(valid, FormatProxy(p))
		}
	}

	agents := defaultUserAgents
	if userAgent != "" {
		agents = []string{userAgent}
	}

	return &ProxyManager{
		proxies:    valid,
		userAgents: agents,
		logger:     log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) GetCurrentProxy() (string, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) == 0 {
		return "", nil
	}
	return pm.proxies[pm.index], nil
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) RotateProxy() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.proxies) <= 1 {
		return
	}
	pm.index = (pm.index + 1) % len(pm.proxies)
	pm.logger.Debug("Rotating proxy to: %s", pm.proxies[pm.index])
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) GetUserAgent() string {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.userAgents) == 0 {
		return fallbackAgent
	}
	return pm.userAgents[rand.IntN(len(pm.userAgents))]
}

// -----------------------------------------------------------------------------

func (pm *ProxyManager) HasProxies() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.proxies) > 0
}

// -----------------------------------------------------------------------------

// RefreshProxies replaces the pool with public proxies scraped from
// sslproxies.org.
func (pm *ProxyManager) RefreshProxies(ctx context.Context) (int, error) {
	pm.logger.Info("Refreshing proxies from %s", proxyListURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyListURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", pm.GetUserAgent())

	resp, err := pm.httpClient.Do(req)
	if err != nil {
		return 0, NewNetworkError("proxy list request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, NewNetworkError("proxy list read failed", err)
	}

	found := ParseProxyList(string(body))
	if len(found) == 0 {
		return 0, fmt.Errorf("no proxies found on page")
	}

	rand.Shuffle(len(found), func(i, j int) { found[i], found[j] = found[j], found[i] })
	if len(found) > maxProxies {
		found = found[:maxProxies]
	}

	pm.mu.Lock()
	pm.proxies = found
	pm.index = 0
	pm.mu.Unlock()

	pm.logger.Info("Found and updated %d proxies", len(found))
	return len(found), nil
}

// -----------------------------------------------------------------------------

// ParseProxyList extracts ip:port rows from a proxy list table.
func ParseProxyList(html string) []string {
	var out []string
	for _, m := range proxyRowRe.FindAllStringSubmatch(html, -1) {
		out = append(out, fmt.Sprintf("http://%s:%s", m[1], m[2]))
	}
	return out
}

// -----------------------------------------------------------------------------

// ValidateProxy checks that a proxy string parses and uses a supported scheme.
// A missing scheme is accepted; FormatProxy adds one.
func ValidateProxy(proxyStr string) bool {
	if strings.TrimSpace(proxyStr) == "" {
		return false
	}
	u, err := url.Parse(FormatProxy(proxyStr))
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}
