// Package text turns raw user input into a pipeline query.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

var (
	urlRegex        = regexp.MustCompile(`(?:https?://|\b(?:open\.)?spotify\.com/)\S+`)
	spotifyURIRegex = regexp.MustCompile(`spotify:track:[a-zA-Z0-9]+`)
	spaceRegex      = regexp.MustCompile(`\s+`)

	spotifyDomains = map[string]bool{
		"open.spotify.com": true,
		"spotify.com":      true,
	}

	trackingParams = []string{"si", "utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "context"}
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseQuery normalizes input. When it contains a Spotify track link or URI
// that link becomes the whole query; otherwise the cleaned text is the query.
func (p *Parser) ParseQuery(input string) core.Query {
	text := p.normalizeText(input)
	if text == "" {
		return ""
	}

	for _, raw := range urlRegex.FindAllString(text, -1) {
		if cleaned, ok := p.cleanSpotifyURL(raw); ok {
			return core.Query(cleaned)
		}
	}

	if uri := spotifyURIRegex.FindString(text); uri != "" {
		return core.Query(uri)
	}

	return core.Query(text)
}

func (p *Parser) normalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = spaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// cleanSpotifyURL drops trailing punctuation and tracking parameters from a Spotify track link.
func (p *Parser) cleanSpotifyURL(rawURL string) (string, bool) {
	rawURL = strings.TrimRight(rawURL, ".,!?;)")
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}

	if !spotifyDomains[strings.ToLower(u.Hostname())] || !strings.Contains(u.Path, "/track/") {
		return "", false
	}

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String(), true
}
