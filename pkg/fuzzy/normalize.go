// Package fuzzy normalizes track titles so they can be compared with file names.
package fuzzy

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]\s*`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:remaster|remastered|deluxe|extended|radio edit|clean|explicit)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeTitle lowercases, strips accents and punctuation, and drops
// bracketed featuring and edition suffixes.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, " ")
	return n.basicNormalize(title)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// FileMatchesTitle reports whether the file name (without directory or
// extension) contains the title as a run of whole words after normalization.
func (n *Normalizer) FileMatchesTitle(path, title string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	wanted := []string{n.NormalizeTitle(title), n.basicNormalize(title)}
	haystacks := []string{n.NormalizeTitle(stem), n.basicNormalize(stem)}

	for _, w := range wanted {
		if w == "" {
			continue
		}
		for _, h := range haystacks {
			if strings.Contains(" "+h+" ", " "+w+" ") {
				return true
			}
		}
	}
	return false
}
