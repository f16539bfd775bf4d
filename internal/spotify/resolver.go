package spotify

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

var (
	canonicalTrackRegex = regexp.MustCompile(`^(?:https?://)?open\.spotify\.com/(?:intl-[a-z]{2}(?:-[a-zA-Z]{2})?/)?track/[a-zA-Z0-9]+/?(?:\?\S*)?$`)
	spotifyURIRegex     = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]+)$`)
)

// TrackSearcher is the slice of the catalog API the resolver needs.
type TrackSearcher interface {
	SearchTopTrack(ctx context.Context, query string) (*core.CatalogTrack, error)
}

// Resolver implements core.CatalogResolver.
type Resolver struct {
	searcher TrackSearcher
	logger   *zap.Logger
}

func NewResolver(searcher TrackSearcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		searcher: searcher,
		logger:   logger,
	}
}

// Resolve returns canonical track URLs unchanged, completing a missing scheme,
// and searches for anything else.
func (r *Resolver) Resolve(ctx context.Context, query core.Query) (string, error) {
	q := strings.TrimSpace(query.String())
	if q == "" {
		return "", core.ErrEmptyQuery
	}

	if IsCanonicalTrackURL(q) {
		if !strings.Contains(q, "://") {
			q = "https://" + q
		}
		r.logger.Debug("Query is already a canonical track URL", zap.String("url", q))
		return q, nil
	}

	if id, ok := ExtractTrackID(q); ok {
		return TrackURLPrefix + id, nil
	}

	track, err := r.searcher.SearchTopTrack(ctx, q)
	if err != nil {
		return "", err
	}
	return track.URL, nil
}

// IsCanonicalTrackURL reports whether s is an open.spotify.com track link.
func IsCanonicalTrackURL(s string) bool {
	return canonicalTrackRegex.MatchString(s)
}

// ExtractTrackID returns the track id of a canonical URL or spotify:track URI.
func ExtractTrackID(s string) (string, bool) {
	if m := spotifyURIRegex.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if !IsCanonicalTrackURL(s) {
		return "", false
	}
	_, rest, _ := strings.Cut(s, "track/")
	rest, _, _ = strings.Cut(rest, "?")
	return strings.TrimSuffix(rest, "/"), true
}
