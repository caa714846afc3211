package config

import (
	"log/slog"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
)

// detectLocales is replaced in tests.
var detectLocales = locale.GetLocales

// ResolveLocale picks the message language: the configured tag, else the
// first usable OS locale, else English.
func ResolveLocale(configured string) string {
	if configured != "" {
		if tag, err := language.Parse(configured); err == nil {
			return tag.String()
		}
		slog.Warn("ignoring malformed locale", "locale", configured)
	}

	locales, err := detectLocales()
	if err != nil {
		slog.Debug("could not detect OS locale", "error", err)
		return language.English.String()
	}
	for _, l := range locales {
		// "C" and "POSIX" parse as nothing useful.
		if tag, err := language.Parse(l); err == nil && tag != language.Und {
			return tag.String()
		}
	}
	return language.English.String()
}
