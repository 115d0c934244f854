package extractors

import (
	"fmt"
	"time"

	datasource "price-scout/src/data_source"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"
)

// Mode selects which extraction paths are used for each vendor.
type Mode string

const (
	// ModeAuto uses the API and falls back to the page when both exist.
	ModeAuto Mode = "auto"
	// ModeAPI uses only structured endpoints.
	ModeAPI Mode = "api"
	// ModeDetailed tries the rendered page first and the API second.
	ModeDetailed Mode = "detailed"
)

// Registered is an extractor plus the match rule configured for its vendor.
type Registered struct {
	Extractor interfaces.IExtractor
	Rule      models.MatchRule
}

// Deps groups the shared collaborators handed to every extractor.
type Deps struct {
	Network interfaces.INetworkManager
	Proxies interfaces.IProxyManager
	Pool    *datasource.PagePool
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// BuildExtractors creates one extractor per enabled vendor in cfg.
func BuildExtractors(cfg *models.MConfig, deps Deps, mode Mode) ([]Registered, error) {
	var out []Registered
	timeout := time.Duration(cfg.Network.RequestTimeout) * time.Second

	for _, vc := range cfg.Vendors {
		if !vc.Enabled {
			continue
		}
		v, err := models.ParseVendor(vc.Name)
		if err != nil {
			return nil, err
		}

		rule := vc.MatchRule
		if rule == "" {
			rule = cfg.Fetch.MatchRule
		}
		log := deps.Logger.Named(string(v))

		var api, page interfaces.IExtractor
		if vc.API != nil {
			api = NewJSONAPIExtractor(v, *vc.API, deps.Network, log)
		}
		if vc.Page != nil {
			page = NewHTMLPageExtractor(v, *vc.Page, deps.Pool, deps.Proxies, timeout, log)
		}

		ex, err := combine(v, api, page, rule, mode, log)
		if err != nil {
			return nil, err
		}
		out = append(out, Registered{Extractor: ex, Rule: rule})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func combine(v models.Vendor, api, page interfaces.IExtractor, rule models.MatchRule, mode Mode, log *logger.Logger) (interfaces.IExtractor, error) {
	switch {
	case api == nil && page == nil:
		return nil, fmt.Errorf("vendor %s has no extractor configured", v)
	case api == nil:
		return page, nil
	case page == nil:
		return api, nil
	}

	switch mode {
	case ModeAPI:
		return api, nil
	case ModeDetailed:
		return datasource.NewFallbackExtractor(page, api, rule, log), nil
	default:
		return datasource.NewFallbackExtractor(api, page, rule, log), nil
	}
}
