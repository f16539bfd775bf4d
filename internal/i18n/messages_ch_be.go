package i18n

// berneseGermanMessages contains all Bernese Swiss German (Bärndütsch) translations
var berneseGermanMessages = map[string]string{
	// Pipeline progress
	"status.resolving":      "🔎 Sueche \"%s\" uf Spotify...",
	"status.resolved":       "Track gfunde: %s",
	"status.fetching_title": "Lise dr Titu vom Lied...",
	"status.title":          "🎵 Titu: %s",
	"status.locating":       "Sueche uf YouTube...",
	"status.located":        "Video gfunde: %s",
	"status.downloading":    "⬇️ Lade d Audio abe...",
	"status.downloaded":     "%s abeglade",
	"status.transcoding":    "Wandle i MP3 um...",
	"status.done":           "✅ Fertig: %s (%s)",

	// Error messages
	"error.resolve.not_found":        "Ha uf Spotify nüt gfunde.",
	"error.locate.not_found":         "Ha uf YouTube nüt gfunde.",
	"error.not_found":                "Ha nüt gfunde.",
	"error.title.extraction_failed":  "Ha dr Titu nid chönne läse. D Spotify-Site het sech veränderet.",
	"error.locate.extraction_failed": "Ha d Suechresultat nid chönne läse. D YouTube-Site het sech veränderet.",
	"error.extraction_failed":        "D Site het sech veränderet.",
	"error.download_failed":          "Abelade het nid funktioniert: %s",
	"error.transcode_failed":         "Umwandle het nid funktioniert: %s",
	"error.busy":                     "Es louft grad scho es angers Abelade. Probier's gli nomau.",
	"error.invalid_query":            "Bitte gib e Liedname oder e Spotify-Link i.",
	"error.rate_limited":             "Nid so gschwind! Du chasch höchschtens %d Lieder pro Minute aafrage.",
	"error.generic":                  "Öppis isch schief gloffe. Probier's haut nomau, bitte.",

	// Chat bot
	"bot.help": "Schick mir e Liedname oder e Spotify-Link und i schick dr es MP3 zrügg.\n\n" +
		"Bispiu: Blinding Lights",
	"bot.audio_caption": "%s",

	// Web page
	"web.title":       "Music Downloader",
	"web.placeholder": "Liedname oder Spotify-Link",
	"web.submit":      "Abelade",
	"web.download":    "%s abelade",

	// Command line
	"cli.saved": "Gspicheret unger %s",
}
