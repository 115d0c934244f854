package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"price-scout/src/models"

	"github.com/shopspring/decimal"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `name: price-scout-test
port: 18080
storage:
  db_type: sqlite
  db_path: ` + filepath.Join(dir, "history.db") + `
vendors:
  - name: umart
    enabled: true
    api:
      url: http://127.0.0.1:1/search?q={mpn}
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseVendorFlag(t *testing.T) {
	def := []models.Vendor{models.VendorScorptec}

	got, err := parseVendorFlag(nil, def)
	if err != nil || len(got) != 1 || got[0] != models.VendorScorptec {
		t.Errorf("empty flag = %v, %v; want default", got, err)
	}

	got, err = parseVendorFlag([]string{"CPL", " digicor "}, def)
	if err != nil || len(got) != 2 || got[0] != models.VendorDigicor || got[1] != models.VendorCPL {
		t.Errorf("parseVendorFlag = %v, %v; want [digicor cpl]", got, err)
	}

	if _, err := parseVendorFlag([]string{"nosuchshop"}, def); err == nil {
		t.Error("unknown vendor accepted")
	}
	if _, err := parseVendorFlag(nil, nil); err == nil {
		t.Error("no vendors at all should fail")
	}
}

func TestWriteObservationsMarksBest(t *testing.T) {
	p := decimal.RequireFromString("199.5")
	observations := []models.MObservation{
		{Vendor: models.VendorMwave, Status: models.StatusSuccess, Price: &p, InStock: models.StockIn, URL: "https://mwave.test/p"},
		{Vendor: models.VendorCPL, Status: models.StatusNotFound, InStock: models.StockUnknown, Message: "no listing"},
	}

	var buf bytes.Buffer
	if err := writeObservations(&buf, observations, &observations[0]); err != nil {
		t.Fatalf("writeObservations: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"*mwave", "$199.50", "no listing", "not_found"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryCommandsAgainstStore(t *testing.T) {
	noColor = true
	configPath = writeTestConfig(t)
	t.Cleanup(func() { configPath = "config/config.yaml" })

	store, closeFn, err := openStore()
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	p := decimal.RequireFromString("89.90")
	_, err = store.Record(context.Background(), models.MObservation{
		Vendor: models.VendorUmart, MPN: "CT1000P3SSD8", MatchedMPN: "CT1000P3SSD8", Price: &p,
		FetchedAt: time.Now(), Status: models.StatusSuccess,
	})
	closeFn()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"mpns", "--config", configPath})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("mpns: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "CT1000P3SSD8" {
		t.Errorf("mpns output = %q", buf.String())
	}

	buf.Reset()
	rootCmd.SetArgs([]string{"latest", "CT1000P3SSD8", "--config", configPath})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !strings.Contains(buf.String(), "umart") || !strings.Contains(buf.String(), "89.90") {
		t.Errorf("latest output = %q", buf.String())
	}

	rootCmd.SetArgs([]string{"prune", "--days", "0", "--config", configPath})
	if err := rootCmd.ExecuteContext(context.Background()); err == nil {
		t.Error("prune --days 0 should fail")
	}
}
