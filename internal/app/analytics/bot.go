package analytics

import "strings"

// BotDetector classifies a client identity string as automated traffic. The
// signature database behind the default implementation is replaceable data,
// not core logic.
type BotDetector interface {
	IsBot(userAgent string) bool
}

// botSignatures covers the common crawler, preview-fetcher and scripted
// clients. Matching is lowercase substring, same as the UA classifiers.
var botSignatures = []string{
	"bot",
	"crawler",
	"spider",
	"crawl",
	"slurp",
	"mediapartners",
	"facebookexternalhit",
	"whatsapp",
	"telegram",
	"headless",
	"lighthouse",
	"curl/",
	"wget/",
	"python-requests",
	"go-http-client",
}

type signatureBotDetector struct {
	signatures []string
}

// NewBotDetector returns the default signature-list detector.
func NewBotDetector() BotDetector {
	return &signatureBotDetector{signatures: botSignatures}
}

func (d *signatureBotDetector) IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, sig := range d.signatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}
