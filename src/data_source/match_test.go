package datasource

import (
	"testing"

	"price-scout/src/models"
)

func TestMatchMPN(t *testing.T) {
	cases := []struct {
		rule      models.MatchRule
		requested string
		matched   string
		want      bool
	}{
		{models.MatchExact, "CT1000P3SSD8", "CT1000P3SSD8", true},
		{models.MatchExact, "CT1000P3SSD8", "ct1000p3ssd8", false},
		{models.MatchCaseInsensitive, "CT1000P3SSD8", "ct1000p3ssd8", true},
		{models.MatchCaseInsensitive, "CT1000-P3", "CT1000P3", false},
		{models.MatchNormalized, "90MB1E40-M0EAY0", "90mb1e40m0eay0", true},
		{models.MatchNormalized, "WD40EFPX/1", "wd40efpx-1", true},
		{models.MatchNormalized, " 100-100000910WOF ", "100100000910WOF", true},
		{models.MatchNormalized, "A1", "A2", false},
		{models.MatchNormalized, "A1", "", false},
		{"", "a-1", "A1", true},
	}
	for _, tc := range cases {
		if got := MatchMPN(tc.rule, tc.requested, tc.matched); got != tc.want {
			t.Errorf("MatchMPN(%q, %q, %q) = %v, want %v", tc.rule, tc.requested, tc.matched, got, tc.want)
		}
	}
}

func TestMismatchMessageNamesRule(t *testing.T) {
	got := MismatchMessage(models.MatchExact, "A1", "A2")
	want := `matched "A2" does not match "A1" (rule=exact)`
	if got != want {
		t.Errorf("MismatchMessage() = %q, want %q", got, want)
	}
}
