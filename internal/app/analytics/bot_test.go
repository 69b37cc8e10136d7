package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBotDetector(t *testing.T) {
	detector := NewBotDetector()

	bots := []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)",
		"facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)",
		"curl/8.4.0",
		"Wget/1.21.4",
		"python-requests/2.31.0",
		"Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/119.0.0.0",
		"Screaming Frog SEO Spider/19.0",
	}
	for _, ua := range bots {
		assert.True(t, detector.IsBot(ua), "expected bot: %s", ua)
	}

	humans := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1",
		"",
	}
	for _, ua := range humans {
		assert.False(t, detector.IsBot(ua), "expected human: %q", ua)
	}
}
