package extractors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	datasource "price-scout/src/data_source"
	"price-scout/src/helpers"
	"price-scout/src/logger"
	"price-scout/src/models"
	"price-scout/src/network"

	"github.com/shopspring/decimal"
)

func testDeps() Deps {
	log := logger.NewNopLogger()
	proxies := helpers.NewProxyManager(nil, "price-scout-test", log)
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5}}
	return Deps{
		Network: network.NewAsyncNetworkManager(cfg, proxies, log),
		Proxies: proxies,
		Pool:    datasource.NewPagePool(2),
		Logger:  log,
	}
}

func TestJSONAPIExtractorPicksMatchingProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "CT1000P3SSD8" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		w.Write([]byte(`{"products":[
			{"mpn":"CT2000P3SSD8","name":"Crucial P3 2TB","price":"199.00"},
			{"mpn":"CT1000P3SSD8","name":"Crucial P3 1TB","price":89.5,"url":"https://shop.test/p3","in_stock":true}
		]}`))
	}))
	defer srv.Close()

	deps := testDeps()
	ex := NewJSONAPIExtractor(models.VendorMwave, models.MVendorAPIConfig{URL: srv.URL + "/search?q={mpn}"}, deps.Network, deps.Logger)
	cand, err := ex.Search(context.Background(), "CT1000P3SSD8")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cand.MatchedMPN != "CT1000P3SSD8" || !cand.Price.Equal(decimal.RequireFromString("89.50")) {
		t.Errorf("candidate = %+v", cand)
	}
	if cand.InStock != models.StockIn || cand.Strategy != StrategyAPI {
		t.Errorf("InStock = %q Strategy = %q", cand.InStock, cand.Strategy)
	}
}

func TestJSONAPIExtractorBareArrayAndEmpty(t *testing.T) {
	body := `[]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	deps := testDeps()
	ex := NewJSONAPIExtractor(models.VendorMwave, models.MVendorAPIConfig{URL: srv.URL}, deps.Network, deps.Logger)

	if _, err := ex.Search(context.Background(), "X1"); !errors.Is(err, helpers.ErrNotFound) {
		t.Errorf("empty array err = %v, want ErrNotFound", err)
	}

	body = `[{"sku":"X1","price":null}]`
	cand, err := ex.Search(context.Background(), "X1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cand.MatchedMPN != "X1" || cand.Price != nil {
		t.Errorf("candidate = %+v, want sku fallback and nil price", cand)
	}
}

func TestJSONAPIExtractorAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"RATE","message":"slow down"}}`))
	}))
	defer srv.Close()

	deps := testDeps()
	ex := NewJSONAPIExtractor(models.VendorMwave, models.MVendorAPIConfig{URL: srv.URL}, deps.Network, deps.Logger)
	_, err := ex.Search(context.Background(), "X1")
	var exErr *helpers.ExtractorError
	if !errors.As(err, &exErr) {
		t.Errorf("err = %v, want ExtractorError", err)
	}
}

const searchPage = `<html><body>
<div class="results">
  <div class="product">
    <a class="title" href="/p/ryzen-7600">AMD Ryzen 5 7600 Processor</a>
    <span class="sku">100-100001015BOX</span>
    <span class="price">$1,299.00</span>
    <span class="stock">In Stock</span>
  </div>
  <div class="product">
    <a class="title" href="/p/other">Other</a>
    <span class="price">$5.00</span>
  </div>
</div>
</body></html>`

func pageConfig(url string) models.MVendorPageConfig {
	return models.MVendorPageConfig{
		URL:   url + "/search?q={mpn}",
		Item:  ".product",
		MPN:   ".sku",
		Name:  ".title",
		Price: ".price",
		Link:  "a.title",
		Stock: ".stock",
	}
}

func TestHTMLPageExtractorReadsFirstListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	deps := testDeps()
	ex := NewHTMLPageExtractor(models.VendorUmart, pageConfig(srv.URL), deps.Pool, deps.Proxies, 5*time.Second, deps.Logger)
	cand, err := ex.Search(context.Background(), "100-100001015BOX")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cand.MatchedMPN != "100-100001015BOX" {
		t.Errorf("MatchedMPN = %q", cand.MatchedMPN)
	}
	if !cand.Price.Equal(decimal.RequireFromString("1299")) {
		t.Errorf("Price = %s, want 1299", cand.Price)
	}
	if cand.URL != srv.URL+"/p/ryzen-7600" {
		t.Errorf("URL = %q", cand.URL)
	}
	if cand.InStock != models.StockIn || cand.Strategy != StrategyPage {
		t.Errorf("InStock = %q Strategy = %q", cand.InStock, cand.Strategy)
	}
	if deps.Pool.InUse() != 0 {
		t.Errorf("page pool slot leaked: InUse = %d", deps.Pool.InUse())
	}
}

func TestHTMLPageExtractorNoListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>No results</p></body></html>`))
	}))
	defer srv.Close()

	deps := testDeps()
	ex := NewHTMLPageExtractor(models.VendorUmart, pageConfig(srv.URL), deps.Pool, deps.Proxies, 5*time.Second, deps.Logger)
	if _, err := ex.Search(context.Background(), "X1"); !errors.Is(err, helpers.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHTMLPageExtractorHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	deps := testDeps()
	ex := NewHTMLPageExtractor(models.VendorUmart, pageConfig(srv.URL), deps.Pool, deps.Proxies, 5*time.Second, deps.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := ex.Search(ctx, "X1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Search ignored ctx deadline, took %v", time.Since(start))
	}
}

func TestBuildExtractorsModes(t *testing.T) {
	cfg := &models.MConfig{
		Network: models.MNetworkConfig{RequestTimeout: 5},
		Fetch:   models.MFetchConfig{MatchRule: models.MatchNormalized},
		Vendors: []models.MVendorConfig{
			{Name: "scorptec", Enabled: true, API: &models.MVendorAPIConfig{URL: "https://a.test"}, Page: &models.MVendorPageConfig{URL: "https://p.test", Item: ".i", Price: ".p"}},
			{Name: "umart", Enabled: true, MatchRule: models.MatchExact, Page: &models.MVendorPageConfig{URL: "https://p.test", Item: ".i", Price: ".p"}},
			{Name: "mwave", Enabled: false, API: &models.MVendorAPIConfig{URL: "https://a.test"}},
		},
	}

	built, err := BuildExtractors(cfg, testDeps(), ModeAuto)
	if err != nil {
		t.Fatalf("BuildExtractors: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("len(built) = %d, want 2", len(built))
	}

	fb, ok := built[0].Extractor.(*datasource.FallbackExtractor)
	if !ok {
		t.Fatalf("scorptec extractor = %T, want *FallbackExtractor", built[0].Extractor)
	}
	if _, ok := fb.Primary.(*JSONAPIExtractor); !ok {
		t.Errorf("auto mode primary = %T, want api", fb.Primary)
	}
	if built[1].Rule != models.MatchExact {
		t.Errorf("umart rule = %q, want exact", built[1].Rule)
	}
	if _, ok := built[1].Extractor.(*HTMLPageExtractor); !ok {
		t.Errorf("umart extractor = %T, want page", built[1].Extractor)
	}

	detailed, _ := BuildExtractors(cfg, testDeps(), ModeDetailed)
	if fb, ok := detailed[0].Extractor.(*datasource.FallbackExtractor); !ok {
		t.Errorf("detailed extractor = %T", detailed[0].Extractor)
	} else if _, ok := fb.Primary.(*HTMLPageExtractor); !ok {
		t.Errorf("detailed mode primary = %T, want page", fb.Primary)
	}

	apiOnly, _ := BuildExtractors(cfg, testDeps(), ModeAPI)
	if _, ok := apiOnly[0].Extractor.(*JSONAPIExtractor); !ok {
		t.Errorf("api mode extractor = %T, want api", apiOnly[0].Extractor)
	}
}

func TestParsePriceAndStock(t *testing.T) {
	prices := map[string]string{
		"$1,299.00":         "1299",
		"AU$ 89.5 inc GST":  "89.5",
		"Now $45 (was $60)": "45",
	}
	for in, want := range prices {
		got := ParsePrice(in)
		if got == nil || !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParsePrice(%q) = %v, want %s", in, got, want)
		}
	}
	if ParsePrice("Call for price") != nil {
		t.Error("ParsePrice without digits should be nil")
	}

	stock := map[string]models.StockState{
		"In Stock":              models.StockIn,
		"SOLD OUT":              models.StockOut,
		"Currently unavailable": models.StockOut,
		"":                      models.StockUnknown,
		"Ships in 3 days":       models.StockUnknown,
	}
	for in, want := range stock {
		if got := ParseStock(in); got != want {
			t.Errorf("ParseStock(%q) = %q, want %q", in, got, want)
		}
	}
}
