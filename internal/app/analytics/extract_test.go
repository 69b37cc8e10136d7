package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func headerMap(h map[string]string) HeaderFunc {
	return func(name string) string { return h[name] }
}

func fixedExtractor(dev GeoOverride) *Extractor {
	e := NewExtractor(dev)
	e.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func TestExtract_NoHeaders(t *testing.T) {
	e := fixedExtractor(GeoOverride{})

	rec := e.Extract("aB3kXy9", headerMap(nil))

	assert.Equal(t, "aB3kXy9", rec.ShortCode)
	assert.Equal(t, "2025-06-01T12:00:00Z", rec.ClickedAt)
	assert.Empty(t, rec.Country)
	assert.Empty(t, rec.City)
	assert.Empty(t, rec.IPHash)
	assert.Equal(t, "Direct", rec.Referrer)
	assert.Equal(t, "Desktop", rec.Device)
	assert.Equal(t, "Other", rec.Browser)
	assert.Equal(t, "Other", rec.OS)
}

func TestExtract_ReferrerChain(t *testing.T) {
	e := fixedExtractor(GeoOverride{})

	rec := e.Extract("c", headerMap(map[string]string{"Referer": "https://a.example"}))
	assert.Equal(t, "https://a.example", rec.Referrer)

	rec = e.Extract("c", headerMap(map[string]string{"Referrer": "https://b.example"}))
	assert.Equal(t, "https://b.example", rec.Referrer)

	rec = e.Extract("c", headerMap(map[string]string{
		"Referer":  "https://a.example",
		"Referrer": "https://b.example",
	}))
	assert.Equal(t, "https://a.example", rec.Referrer)
}

func TestExtract_IPHashing(t *testing.T) {
	e := fixedExtractor(GeoOverride{})

	sum := sha256.Sum256([]byte("1.2.3.4"))
	want := hex.EncodeToString(sum[:])

	rec := e.Extract("c", headerMap(map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}))
	assert.Equal(t, want, rec.IPHash, "first forwarded value, trimmed, hashed")

	rec = e.Extract("c", headerMap(map[string]string{"X-Forwarded-For": " 1.2.3.4 "}))
	assert.Equal(t, want, rec.IPHash)

	rec = e.Extract("c", headerMap(map[string]string{"X-Real-IP": "1.2.3.4"}))
	assert.Equal(t, want, rec.IPHash)

	rec = e.Extract("c", headerMap(nil))
	assert.Empty(t, rec.IPHash, "unknown address is never hashed")
}

func TestExtract_GeoChain(t *testing.T) {
	e := fixedExtractor(GeoOverride{Country: "DE", City: "Berlin"})

	rec := e.Extract("c", headerMap(map[string]string{
		"X-Vercel-IP-Country": "US",
		"CF-IPCountry":        "FR",
	}))
	assert.Equal(t, "US", rec.Country)

	rec = e.Extract("c", headerMap(map[string]string{"CF-IPCountry": "FR", "CF-IPCity": "Paris"}))
	assert.Equal(t, "FR", rec.Country)
	assert.Equal(t, "Paris", rec.City)

	rec = e.Extract("c", headerMap(nil))
	assert.Equal(t, "DE", rec.Country, "dev override when no provider header is present")
	assert.Equal(t, "Berlin", rec.City)
}

func TestExtract_UserAgentClassification(t *testing.T) {
	cases := []struct {
		name    string
		ua      string
		device  string
		browser string
		os      string
	}{
		{
			name:    "chrome on windows desktop",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			device:  "Desktop",
			browser: "Chrome",
			os:      "Windows",
		},
		{
			name:    "edge is detected before chrome",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			device:  "Desktop",
			browser: "Edge",
			os:      "Windows",
		},
		{
			name:    "safari on iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  "Mobile",
			browser: "Safari",
			os:      "iOS",
		},
		{
			name:    "android tablet without mobile token",
			ua:      "Mozilla/5.0 (Linux; Android 13; SM-X710) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			device:  "Tablet",
			browser: "Chrome",
			os:      "Android",
		},
		{
			name:    "android phone",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			device:  "Mobile",
			browser: "Chrome",
			os:      "Android",
		},
		{
			name:    "firefox on linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			device:  "Desktop",
			browser: "Firefox",
			os:      "Linux",
		},
		{
			name:    "legacy IE",
			ua:      "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko",
			device:  "Desktop",
			browser: "IE",
			os:      "Windows",
		},
		{
			name:    "opera",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0",
			device:  "Desktop",
			browser: "Chrome", // chrome token precedes the opr token in match order
			os:      "Windows",
		},
		{
			name:    "chromeos",
			ua:      "Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			device:  "Desktop",
			browser: "Chrome",
			os:      "ChromeOS",
		},
	}

	e := fixedExtractor(GeoOverride{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.Extract("c", headerMap(map[string]string{"User-Agent": tc.ua}))
			assert.Equal(t, tc.device, rec.Device)
			assert.Equal(t, tc.browser, rec.Browser)
			assert.Equal(t, tc.os, rec.OS)
		})
	}
}
