// Package fingerprint derives opaque device-identity tokens from environment
// signals reported by the client. Fingerprints are weak identity hints used
// to recognize returning devices; they are not an authentication credential.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fallback substitutes for any signal the client could not provide, so that
// collection never fails.
const fallback = "unavailable"

// Signals are the raw environment observations sent by the client. Any field
// may be empty.
type Signals struct {
	UserAgent        string `json:"user_agent"`
	Language         string `json:"language"`
	Languages        string `json:"languages"`
	Platform         string `json:"platform"`
	ScreenResolution string `json:"screen_resolution"`
	ColorDepth       string `json:"color_depth"`
	Timezone         string `json:"timezone"`
	RenderProbe      string `json:"render_probe"`
	CookiesEnabled   string `json:"cookies_enabled"`
}

// Collector turns signals into a stable opaque token.
type Collector struct{}

// NewCollector constructs a Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Collect canonicalizes the signals and hashes them into an opaque token.
// Identical signals always produce the same token.
func (c *Collector) Collect(s Signals) string {
	parts := []string{
		orFallback(s.UserAgent),
		orFallback(s.Language),
		orFallback(s.Languages),
		orFallback(s.Platform),
		orFallback(s.ScreenResolution),
		orFallback(s.ColorDepth),
		orFallback(s.Timezone),
		orFallback(s.RenderProbe),
		orFallback(s.CookiesEnabled),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

func orFallback(v string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
