package extractors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	datasource "price-scout/src/data_source"
	"price-scout/src/helpers"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"

	"github.com/shopspring/decimal"
)

// StrategyAPI marks candidates read from a structured search endpoint.
const StrategyAPI = "api"

// JSONAPIExtractor queries a vendor's JSON search endpoint. The response is
// either {"products": [...]}, {"results": [...]} or a bare array of products.
type JSONAPIExtractor struct {
	vendor  models.Vendor
	Config  models.MVendorAPIConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewJSONAPIExtractor(v models.Vendor, cfg models.MVendorAPIConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *JSONAPIExtractor {
	return &JSONAPIExtractor{
		vendor:  v,
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *JSONAPIExtractor) Vendor() models.Vendor {
	return s.vendor
}

// -----------------------------------------------------------------------------

// Search fetches and parses the vendor's search results for mpn
func (s *JSONAPIExtractor) Search(ctx context.Context, mpn string) (*models.MCandidate, error) {
	params := make(map[string]string, len(s.Config.Params))
	for k, v := range s.Config.Params {
		params[k] = strings.ReplaceAll(v, "{mpn}", mpn)
	}

	body, err := s.Network.Get(ctx, ExpandURL(s.Config.URL, mpn), params, s.Config.Headers)
	if err != nil {
		if errors.Is(err, helpers.ErrNotFound) {
			return nil, helpers.ErrNotFound
		}
		return nil, err
	}

	products, err := parseProducts(body)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, helpers.ErrNotFound
	}

	p := pickProduct(products, mpn)
	s.Logger.Debug("%s: api returned %d products for %s, picked %q", s.vendor, len(products), mpn, p.partNumber())
	return p.candidate(), nil
}

// -----------------------------------------------------------------------------

type apiProduct struct {
	MPN      string           `json:"mpn"`
	SKU      string           `json:"sku"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Currency string           `json:"currency"`
	URL      string           `json:"url"`
	InStock  *bool            `json:"in_stock"`
}

type apiResponse struct {
	Products []apiProduct `json:"products"`
	Results  []apiProduct `json:"results"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// -----------------------------------------------------------------------------

func parseProducts(data []byte) ([]apiProduct, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var list []apiProduct
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, helpers.NewExtractorError("json unmarshal failed", err)
		}
		return list, nil
	}

	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, helpers.NewExtractorError("json unmarshal failed", err)
	}
	if resp.Error != nil {
		return nil, helpers.NewExtractorError(fmt.Sprintf("api error: %s - %s", resp.Error.Code, resp.Error.Message), nil)
	}
	if len(resp.Products) > 0 {
		return resp.Products, nil
	}
	return resp.Results, nil
}

// -----------------------------------------------------------------------------

// pickProduct prefers the first product whose part number normalises to the
// requested one, falling back to the first result.
func pickProduct(products []apiProduct, mpn string) apiProduct {
	want := datasource.NormalizeMPN(mpn)
	for _, p := range products {
		if datasource.NormalizeMPN(p.partNumber()) == want {
			return p
		}
	}
	return products[0]
}

// -----------------------------------------------------------------------------

func (p apiProduct) partNumber() string {
	if p.MPN != "" {
		return p.MPN
	}
	return p.SKU
}

// -----------------------------------------------------------------------------

func (p apiProduct) candidate() *models.MCandidate {
	c := &models.MCandidate{
		MatchedMPN:  strings.TrimSpace(p.partNumber()),
		ProductName: strings.TrimSpace(p.Name),
		Currency:    p.Currency,
		URL:         p.URL,
		InStock:     models.StockUnknown,
		Strategy:    StrategyAPI,
	}
	if p.Price != nil {
		price := p.Price.Round(2)
		c.Price = &price
	}
	if p.InStock != nil {
		c.InStock = models.StockOut
		if *p.InStock {
			c.InStock = models.StockIn
		}
	}
	return c
}
