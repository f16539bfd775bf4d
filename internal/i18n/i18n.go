// Package i18n provides internationalization support for user-facing messages
package i18n

import (
	"fmt"
	"strings"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "en"
	// BerneseGermanMessages is a Swiss Dialect spoken in the Canton of Bern
	BerneseGermanMessages = "ch_be"
)

// Localizer provides translation functionality
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a new localizer for the specified language
func NewLocalizer(language string) *Localizer {
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// T translates a message key, with optional parameters for formatting
func (l *Localizer) T(key string, args ...any) string {
	message, ok := l.lookup(key)
	if !ok {
		// Ultimate fallback: return the key itself
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// Status renders a pipeline status event. Step-specific error keys fall
// back to the generic key of their kind, then to error.generic.
func (l *Localizer) Status(status core.Status) string {
	for _, key := range fallbackKeys(status) {
		if _, ok := l.lookup(key); ok {
			return l.T(key, status.Args...)
		}
	}
	return l.T("error.generic")
}

// Error renders err as the single message shown to the user.
func (l *Localizer) Error(err error) string {
	return l.Status(core.ErrorStatus(err))
}

func (l *Localizer) lookup(key string) (string, bool) {
	if message, exists := l.messages[key]; exists {
		return message, true
	}
	// Fallback to English if key not found in current language
	if l.language != DefaultLanguage {
		if message, exists := englishMessages[key]; exists {
			return message, true
		}
	}
	return "", false
}

func fallbackKeys(status core.Status) []string {
	keys := []string{status.Key}
	if status.Step != "" {
		if stripped := strings.Replace(status.Key, "."+string(status.Step)+".", ".", 1); stripped != status.Key {
			keys = append(keys, stripped)
		}
	}
	return keys
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, BerneseGermanMessages}
}

// IsSupported reports whether language has its own message table.
func IsSupported(language string) bool {
	for _, l := range GetSupportedLanguages() {
		if l == language {
			return true
		}
	}
	return false
}

// getMessages returns the message map for a given language
func getMessages(language string) map[string]string {
	switch language {
	case DefaultLanguage:
		return englishMessages
	case BerneseGermanMessages:
		return berneseGermanMessages
	default:
		return englishMessages // Default to English
	}
}
