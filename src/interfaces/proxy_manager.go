package interfaces

import "context"

// -----------------------------------------------------------------------------
// IProxyManager defines the contract for managing and rotating proxies.
// -----------------------------------------------------------------------------

type IProxyManager interface {

	// GetCurrentProxy returns the currently selected proxy URL (or empty if none).
	GetCurrentProxy() (string, error)

	// RotateProxy switches to the next available proxy.
	RotateProxy()

	// HasProxies returns true if there are proxies configured.
	HasProxies() bool

	// GetUserAgent returns a User-Agent string for the next request.
	GetUserAgent() string

	// RefreshProxies scrapes new proxies from external sources.
	// Returns the number of new proxies found or an error.
	RefreshProxies(ctx context.Context) (int, error)
}
