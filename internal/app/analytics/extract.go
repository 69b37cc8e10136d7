package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ClickRecord captures the metadata of a single redirect. It is built
// synchronously while the request is in flight, shipped through the queue,
// and persisted by the webhook consumer; the redirect path never reads it.
type ClickRecord struct {
	ShortCode string `json:"shortCode"`
	ClickedAt string `json:"clickedAt"`
	Country   string `json:"country,omitempty"`
	City      string `json:"city,omitempty"`
	Device    string `json:"device,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	IPHash    string `json:"ipHash,omitempty"`
}

// HeaderFunc reads a single request header, returning "" when absent. It
// decouples extraction from any particular HTTP framework.
type HeaderFunc func(name string) string

// GeoOverride supplies fixed geo values for development environments where
// no edge provider injects location headers.
type GeoOverride struct {
	Country string
	City    string
}

// Extractor derives ClickRecords from request headers. Extraction is a pure
// function of the headers and the clock: every field has a fallback, so it
// never fails, and the only computation beyond header inspection is one
// SHA-256 digest.
type Extractor struct {
	dev GeoOverride
	now func() time.Time
}

// NewExtractor builds an Extractor with the given development geo overrides.
func NewExtractor(dev GeoOverride) *Extractor {
	return &Extractor{dev: dev, now: time.Now}
}

// Extract builds the ClickRecord for one redirect of shortCode.
func (e *Extractor) Extract(shortCode string, header HeaderFunc) ClickRecord {
	ua := header("User-Agent")

	ip := clientIP(header)
	var ipHash string
	if ip != "unknown" {
		sum := sha256.Sum256([]byte(ip))
		ipHash = hex.EncodeToString(sum[:])
	}

	return ClickRecord{
		ShortCode: shortCode,
		ClickedAt: e.now().UTC().Format(time.RFC3339),
		Country:   firstOf(header("X-Vercel-IP-Country"), header("CF-IPCountry"), e.dev.Country),
		City:      firstOf(header("X-Vercel-IP-City"), header("CF-IPCity"), e.dev.City),
		Device:    deviceType(ua),
		Browser:   browserName(ua),
		OS:        osName(ua),
		Referrer:  firstOf(header("Referer"), header("Referrer"), "Direct"),
		IPHash:    ipHash,
	}
}

// clientIP walks the forwarded-address chain. Raw addresses are hashed by the
// caller and never retained.
func clientIP(header HeaderFunc) string {
	accessors := []func() string{
		func() string {
			forwarded := header("X-Forwarded-For")
			if forwarded == "" {
				return ""
			}
			first, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(first)
		},
		func() string { return header("X-Real-IP") },
	}
	for _, get := range accessors {
		if v := get(); v != "" {
			return v
		}
	}
	return "unknown"
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// matchFirst returns the label of the first signature found in ua. Order
// matters: overlapping signatures (Chrome inside Edge UA strings) are listed
// most specific first.
func matchFirst(ua string, signatures []uaSignature, fallback string) string {
	for _, sig := range signatures {
		for _, needle := range sig.needles {
			if strings.Contains(ua, needle) {
				return sig.label
			}
		}
	}
	return fallback
}

type uaSignature struct {
	label   string
	needles []string
}

var deviceSignatures = []uaSignature{
	{"Tablet", []string{"tablet", "ipad", "playbook", "silk"}},
	{"Mobile", []string{"mobile", "iphone", "ipod", "blackberry", "opera mini", "iemobile", "wpdesktop"}},
}

var browserSignatures = []uaSignature{
	{"Edge", []string{"edg/", "edge/"}},
	{"Chrome", []string{"chrome/"}},
	{"Safari", []string{"safari/"}},
	{"Firefox", []string{"firefox/"}},
	{"Opera", []string{"opera/", "opr/"}},
	{"IE", []string{"msie", "trident/"}},
}

var osSignatures = []uaSignature{
	{"iOS", []string{"iphone", "ipad", "ipod"}},
	{"Android", []string{"android"}},
	{"Windows", []string{"win"}},
	{"macOS", []string{"mac"}},
	{"ChromeOS", []string{"cros"}},
	{"Linux", []string{"linux"}},
}

func deviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	// Android tablets carry "android" without "mobile"; phones carry both.
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobi") {
		return "Tablet"
	}
	return matchFirst(ua, deviceSignatures, "Desktop")
}

func browserName(userAgent string) string {
	return matchFirst(strings.ToLower(userAgent), browserSignatures, "Other")
}

func osName(userAgent string) string {
	ua := strings.ToLower(userAgent)
	return matchFirst(ua, osSignatures, "Other")
}
