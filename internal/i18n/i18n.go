// Package i18n localizes candidate facing messages.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator holds the message bundle
type Translator struct {
	bundle      *i18n.Bundle
	defaultLang string
	logger      *slog.Logger
}

// New loads every embedded locale. A locale the bundle cannot register (for
// example one without plural rules) is skipped and falls back to defaultLang.
func New(defaultLang string, logger *slog.Logger) (*Translator, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			logger.Warn("skipping locale file", "file", e.Name(), "error", err)
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no locale files could be loaded")
	}

	return &Translator{bundle: bundle, defaultLang: defaultLang, logger: logger}, nil
}

// Localizer prefers lang, then the default language.
func (t *Translator) Localizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(t.bundle, lang, t.defaultLang)
}

// T translates a message by ID.
func (t *Translator) T(lang, msgID string) string {
	return t.Td(lang, msgID, nil)
}

// Td translates a message by ID with template data. Missing messages return the ID.
func (t *Translator) Td(lang, msgID string, data map[string]any) string {
	s, err := t.Localizer(lang).Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		t.logger.Warn("missing translation", "id", msgID, "lang", lang, "error", err)
		return msgID
	}
	return s
}

// ResultMessage is the text shown with an exam result
type ResultMessage struct {
	Name       string
	Score      int
	Total      int
	Percentage float64
	Passed     bool
	Threshold  float64
	Phone      string
}

// Result composes the localized result text, one line per section.
func (t *Translator) Result(lang string, m ResultMessage) string {
	lines := []string{t.Td(lang, "result.header", map[string]any{
		"Name":  m.Name,
		"Score": m.Score,
		"Total": m.Total,
	})}

	if m.Passed {
		lines = append(lines, t.T(lang, "result.pass"))
	} else {
		lines = append(lines,
			t.Td(lang, "result.percentage", map[string]any{"Percentage": formatNumber(m.Percentage)}),
			t.Td(lang, "result.fail", map[string]any{"Threshold": formatNumber(m.Threshold)}),
		)
	}

	if m.Phone != "" {
		lines = append(lines, t.Td(lang, "result.contact", map[string]any{"Phone": m.Phone}))
	}
	return strings.Join(lines, "\n")
}

func formatNumber(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
