package helpers

import (
	"testing"

	"price-scout/src/logger"
)

func TestValidateProxy(t *testing.T) {
	cases := map[string]bool{
		"http://10.0.0.1:8080":   true,
		"socks5://10.0.0.1:1080": true,
		"10.0.0.1:3128":          true,
		"ftp://10.0.0.1:21":      false,
		"":                       false,
	}
	for in, want := range cases {
		if got := ValidateProxy(in); got != want {
			t.Errorf("ValidateProxy(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestProxyManagerRotation(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:1", "ftp://bad", "http://10.0.0.2:2"}, "", logger.NewNopLogger())
	if !pm.HasProxies() {
		t.Fatal("expected proxies")
	}

	first, _ := pm.GetCurrentProxy()
	if first != "http://10.0.0.1:1" {
		t.Errorf("first proxy = %q, want http://10.0.0.1:1", first)
	}
	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	if second != "http://10.0.0.2:2" {
		t.Errorf("second proxy = %q, want http://10.0.0.2:2", second)
	}
	pm.RotateProxy()
	if again, _ := pm.GetCurrentProxy(); again != first {
		t.Errorf("rotation did not wrap: got %q", again)
	}
}

func TestProxyManagerPinnedUserAgent(t *testing.T) {
	pm := NewProxyManager(nil, "price-scout/1.0", logger.NewNopLogger())
	if got := pm.GetUserAgent(); got != "price-scout/1.0" {
		t.Errorf("GetUserAgent() = %q, want price-scout/1.0", got)
	}
	if pm.HasProxies() {
		t.Error("expected no proxies")
	}
}

func TestParseProxyList(t *testing.T) {
	html := `<table><tr><td>1.2.3.4</td><td>8080</td><td>AU</td></tr><tr><td>5.6.7.8</td><td>3128</td></tr></table>`
	got := ParseProxyList(html)
	if len(got) != 2 || got[0] != "http://1.2.3.4:8080" || got[1] != "http://5.6.7.8:3128" {
		t.Errorf("ParseProxyList() = %v", got)
	}
}
