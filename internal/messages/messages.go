// Package messages renders localized text for rule violations and
// engine notifications.
//
// Message templates live in locales/active.<lang>.yaml and are embedded in
// the binary. English is the fallback for any missing message.
package messages

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog renders messages in one language.
type Catalog struct {
	lang      string
	localizer *i18n.Localizer
}

var (
	bundleOnce sync.Once
	bundle     *i18n.Bundle
	bundleErr  error
)

func loadBundle() (*i18n.Bundle, error) {
	bundleOnce.Do(func() {
		b := i18n.NewBundle(language.English)
		b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
		files, err := fs.Glob(localeFS, "locales/*.yaml")
		if err != nil {
			bundleErr = fmt.Errorf("list locales: %w", err)
			return
		}
		for _, f := range files {
			if _, err := b.LoadMessageFileFS(localeFS, f); err != nil {
				bundleErr = fmt.Errorf("load %s: %w", f, err)
				return
			}
		}
		bundle = b
	})
	return bundle, bundleErr
}

// New returns a catalog for lang (a BCP 47 tag such as "fr" or "fr-CA").
// Unknown or malformed tags fall back to English.
func New(lang string) (*Catalog, error) {
	b, err := loadBundle()
	if err != nil {
		return nil, err
	}
	if _, err := language.Parse(lang); err != nil {
		lang = language.English.String()
	}
	return &Catalog{
		lang:      lang,
		localizer: i18n.NewLocalizer(b, lang, language.English.String()),
	}, nil
}

// English returns the English catalog. It panics if the embedded
// locales are broken, which tests catch.
func English() *Catalog {
	c, err := New("en")
	if err != nil {
		panic(err)
	}
	return c
}

// Lang returns the requested language tag.
func (c *Catalog) Lang() string { return c.lang }

// Languages returns the languages with embedded messages.
func Languages() []string {
	b, err := loadBundle()
	if err != nil {
		return nil
	}
	tags := b.LanguageTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Render localizes id with data. A message missing in every language
// renders as its id.
func (c *Catalog) Render(id string, data map[string]any) string {
	msg, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if msg != "" {
		return msg
	}
	if err != nil {
		slog.Debug("message not found", "id", id, "lang", c.lang, "error", err)
	}
	return id
}
