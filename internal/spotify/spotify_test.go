package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/browser/browsertest"
	"github.com/changkevin51/Music-Downloader/internal/core"
)

const searchResponse = `{
  "tracks": {
    "href": "",
    "limit": 1,
    "offset": 0,
    "total": 1,
    "items": [{
      "id": "0VjIjW4GlUZAMYd2vXMi3b",
      "name": "Blinding Lights",
      "artists": [{"id": "1Xyo4u8uXC1ZmMpatF05PJ", "name": "The Weeknd"}],
      "external_urls": {"spotify": "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b"}
    }]
  }
}`

const emptySearchResponse = `{"tracks": {"href": "", "limit": 1, "offset": 0, "total": 0, "items": []}}`

type catalogServer struct {
	*httptest.Server
	searches atomic.Int32
	lastURL  atomic.Value
}

func newCatalogServer(t *testing.T, body string) *catalogServer {
	t.Helper()
	cs := &catalogServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		cs.searches.Add(1)
		cs.lastURL.Store(r.URL.RawQuery)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func (cs *catalogServer) client() *Client {
	return NewClient(&core.SpotifyConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		APIBaseURL:   cs.URL + "/v1",
		TokenURL:     cs.URL + "/api/token",
	}, zap.NewNop())
}

func TestClient_SearchTopTrack(t *testing.T) {
	cs := newCatalogServer(t, searchResponse)
	client := cs.client()

	track, err := client.SearchTopTrack(context.Background(), "blinding lights")
	if err != nil {
		t.Fatalf("SearchTopTrack() error = %v", err)
	}
	if track.URL != "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b" {
		t.Errorf("URL = %q", track.URL)
	}
	if track.Name != "Blinding Lights" || len(track.Artists) != 1 || track.Artists[0] != "The Weeknd" {
		t.Errorf("unexpected track %+v", track)
	}

	raw, _ := cs.lastURL.Load().(string)
	for _, want := range []string{"limit=1", "type=track"} {
		if !strings.Contains(raw, want) {
			t.Errorf("search query %q is missing %q", raw, want)
		}
	}
}

func TestClient_SearchTopTrackNoResults(t *testing.T) {
	cs := newCatalogServer(t, emptySearchResponse)

	_, err := cs.client().SearchTopTrack(context.Background(), "zzzz qqqq")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SearchTopTrack() error = %v, want ErrNotFound", err)
	}
}

func TestClient_Authenticate(t *testing.T) {
	cs := newCatalogServer(t, searchResponse)
	if err := cs.client().Authenticate(context.Background()); err != nil {
		t.Errorf("Authenticate() error = %v", err)
	}
}

type fakeSearcher struct {
	calls int
	track *core.CatalogTrack
	err   error
}

func (f *fakeSearcher) SearchTopTrack(context.Context, string) (*core.CatalogTrack, error) {
	f.calls++
	return f.track, f.err
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		query      core.Query
		searcher   *fakeSearcher
		want       string
		wantErr    error
		wantSearch int
	}{
		{
			name:     "Canonical URL is returned unchanged",
			query:    "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b",
			searcher: &fakeSearcher{},
			want:     "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b",
		},
		{
			name:     "Localized canonical URL is returned unchanged",
			query:    "https://open.spotify.com/intl-de/track/0VjIjW4GlUZAMYd2vXMi3b",
			searcher: &fakeSearcher{},
			want:     "https://open.spotify.com/intl-de/track/0VjIjW4GlUZAMYd2vXMi3b",
		},
		{
			name:     "URL without scheme gets https",
			query:    "open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b",
			searcher: &fakeSearcher{},
			want:     "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b",
		},
		{
			name:     "URI is rewritten",
			query:    "spotify:track:0VjIjW4GlUZAMYd2vXMi3b",
			searcher: &fakeSearcher{},
			want:     "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b",
		},
		{
			name:       "Free text is searched",
			query:      "blinding lights",
			searcher:   &fakeSearcher{track: &core.CatalogTrack{URL: "https://open.spotify.com/track/abc"}},
			want:       "https://open.spotify.com/track/abc",
			wantSearch: 1,
		},
		{
			name:       "Album link is searched as text",
			query:      "https://open.spotify.com/album/4yP0hdKOZPNshxUOjY0cZj",
			searcher:   &fakeSearcher{err: core.ErrNotFound},
			wantErr:    core.ErrNotFound,
			wantSearch: 1,
		},
		{
			name:       "Zero matches",
			query:      "zzzz qqqq",
			searcher:   &fakeSearcher{err: core.ErrNotFound},
			wantErr:    core.ErrNotFound,
			wantSearch: 1,
		},
		{
			name:     "Blank query",
			query:    "   ",
			searcher: &fakeSearcher{},
			wantErr:  core.ErrEmptyQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewResolver(tt.searcher, zap.NewNop())
			got, err := resolver.Resolve(context.Background(), tt.query)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
			if tt.searcher.calls != tt.wantSearch {
				t.Errorf("search calls = %d, want %d", tt.searcher.calls, tt.wantSearch)
			}
		})
	}
}

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b", "0VjIjW4GlUZAMYd2vXMi3b", true},
		{"https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b?si=x", "0VjIjW4GlUZAMYd2vXMi3b", true},
		{"spotify:track:0VjIjW4GlUZAMYd2vXMi3b", "0VjIjW4GlUZAMYd2vXMi3b", true},
		{"https://example.com/track/abc", "", false},
		{"hello", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractTrackID(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractTrackID(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func newFetcher(launcher *browsertest.Launcher) *TitleFetcher {
	return NewTitleFetcher(launcher,
		&core.SpotifyConfig{TitleSelector: "h1"},
		&core.BrowserConfig{PageTimeout: 50 * time.Millisecond},
		zap.NewNop())
}

func TestTitleFetcher_FetchTitle(t *testing.T) {
	const trackURL = "https://open.spotify.com/track/abc"

	tests := []struct {
		name    string
		page    browsertest.Page
		want    string
		wantErr error
	}{
		{
			name: "Heading text",
			page: browsertest.Page{HTML: `<html><body><h1>Song A</h1></body></html>`},
			want: "Song A",
		},
		{
			name: "Heading rendered late",
			page: browsertest.Page{HTML: `<html><body><h1>Song A</h1></body></html>`, RenderAfter: 10 * time.Millisecond},
			want: "Song A",
		},
		{
			name:    "No heading",
			page:    browsertest.Page{HTML: `<html><body><p>Song A</p></body></html>`},
			wantErr: core.ErrExtractionFailed,
		},
		{
			name:    "Empty heading",
			page:    browsertest.Page{HTML: `<html><body><h1>  </h1></body></html>`},
			wantErr: core.ErrExtractionFailed,
		},
		{
			name:    "Navigation failure",
			page:    browsertest.Page{NavigateErr: browsertest.ErrScripted},
			wantErr: browsertest.ErrScripted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := browsertest.NewLauncher(map[string]browsertest.Page{trackURL: tt.page})

			got, err := newFetcher(launcher).FetchTitle(context.Background(), trackURL)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("FetchTitle() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("FetchTitle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FetchTitle() = %q, want %q", got, tt.want)
			}

			if launcher.Launched() != 1 || launcher.Closed() != 1 {
				t.Errorf("sessions launched=%d closed=%d, want 1/1", launcher.Launched(), launcher.Closed())
			}
		})
	}
}

func TestTitleFetcher_LaunchFailure(t *testing.T) {
	launcher := browsertest.NewLauncher(nil)
	launcher.LaunchErr = browsertest.ErrScripted

	if _, err := newFetcher(launcher).FetchTitle(context.Background(), "https://open.spotify.com/track/abc"); !errors.Is(err, browsertest.ErrScripted) {
		t.Errorf("FetchTitle() error = %v, want ErrScripted", err)
	}
	if launcher.Closed() != 0 {
		t.Errorf("Closed() = %d, want 0", launcher.Closed())
	}
}
