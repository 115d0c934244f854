package analysis

import (
	"testing"
	"time"

	"price-scout/src/models"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummarizePrices(t *testing.T) {
	stats := SummarizePrices(models.VendorScorptec, []decimal.Decimal{dec("100"), dec("120"), dec("110")})

	if stats.Count != 3 {
		t.Errorf("Count = %d, want 3", stats.Count)
	}
	if !stats.Min.Equal(dec("100")) || !stats.Max.Equal(dec("120")) {
		t.Errorf("Min/Max = %s/%s, want 100/120", stats.Min, stats.Max)
	}
	if !stats.Avg.Equal(dec("110")) {
		t.Errorf("Avg = %s, want 110", stats.Avg)
	}
	// population std of {100,110,120} is sqrt(200/3)
	if !stats.StdDev.Equal(dec("8.16")) {
		t.Errorf("StdDev = %s, want 8.16", stats.StdDev)
	}
}

func TestSummarizePricesEmptyAndSingle(t *testing.T) {
	if s := SummarizePrices("", nil); s.Count != 0 || !s.Avg.IsZero() {
		t.Errorf("empty stats = %+v", s)
	}
	s := SummarizePrices("", []decimal.Decimal{dec("42.50")})
	if !s.Avg.Equal(dec("42.5")) || !s.StdDev.IsZero() {
		t.Errorf("single stats = %+v", s)
	}
}

func TestSummarizeTrend(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.MPriceRecord{
		{Price: dec("80"), FirstSeenAt: t0.Add(48 * time.Hour), LastSeenAt: t0.Add(72 * time.Hour)},
		{Price: dec("100"), FirstSeenAt: t0, LastSeenAt: t0.Add(24 * time.Hour)},
		{Price: dec("120"), FirstSeenAt: t0.Add(25 * time.Hour), LastSeenAt: t0.Add(47 * time.Hour)},
	}

	trend := SummarizeTrend(models.VendorMwave, "A1", records)
	if !trend.First.Equal(dec("100")) || !trend.Current.Equal(dec("80")) {
		t.Errorf("First/Current = %s/%s, want 100/80", trend.First, trend.Current)
	}
	if !trend.Low.Equal(dec("80")) || !trend.High.Equal(dec("120")) {
		t.Errorf("Low/High = %s/%s", trend.Low, trend.High)
	}
	if !trend.ChangePct.Equal(dec("-20")) {
		t.Errorf("ChangePct = %s, want -20", trend.ChangePct)
	}
	if !trend.Since.Equal(t0) || !trend.LastSeen.Equal(t0.Add(72*time.Hour)) {
		t.Errorf("Since/LastSeen = %v/%v", trend.Since, trend.LastSeen)
	}
}
