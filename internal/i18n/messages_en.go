package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Pipeline progress
	"status.resolving":      "🔎 Looking up \"%s\" on Spotify...",
	"status.resolved":       "Found track: %s",
	"status.fetching_title": "Reading the track title...",
	"status.title":          "🎵 Title: %s",
	"status.locating":       "Searching YouTube...",
	"status.located":        "Found video: %s",
	"status.downloading":    "⬇️ Downloading audio...",
	"status.downloaded":     "Downloaded %s",
	"status.transcoding":    "Converting to MP3...",
	"status.done":           "✅ Done: %s (%s)",

	// Error messages
	"error.resolve.not_found":        "No results found on Spotify.",
	"error.locate.not_found":         "No results found on YouTube.",
	"error.not_found":                "No results found.",
	"error.title.extraction_failed":  "Couldn't read the track title. The Spotify page structure changed.",
	"error.locate.extraction_failed": "Couldn't read the search results. The YouTube page structure changed.",
	"error.extraction_failed":        "The page structure changed.",
	"error.download_failed":          "Download failed: %s",
	"error.transcode_failed":         "Conversion failed: %s",
	"error.busy":                     "Another download is in progress. Please try again in a moment.",
	"error.invalid_query":            "Please enter a song name or a Spotify track link.",
	"error.rate_limited":             "Slow down! You can request up to %d songs per minute.",
	"error.generic":                  "Something went wrong. Please try again.",

	// Chat bot
	"bot.help": "Send me a song name or a Spotify track link and I'll send you back an MP3.\n\n" +
		"Example: Blinding Lights",
	"bot.audio_caption": "%s",

	// Web page
	"web.title":       "Music Downloader",
	"web.placeholder": "Song name or Spotify track link",
	"web.submit":      "Download",
	"web.download":    "Download %s",

	// Command line
	"cli.saved": "Saved to %s",
}
