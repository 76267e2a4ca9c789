// Package localization provides functionality for internationalization (i18n).
// It loads translation strings from JSON files and provides a simple way to get
// localized strings for the languages complaints can be filed in.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var embedded embed.FS

// DefaultLanguage is the fallback used when a key is missing for a language.
const DefaultLanguage = "en"

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer creates and returns a new Localizer instance.
// It loads all translations from the provided directory path.
// The directory should contain JSON files named with the language code (e.g., "en.json").
func NewLocalizer(dir string) (*Localizer, error) {
	return NewLocalizerFS(os.DirFS(dir), ".")
}

// NewDefaultLocalizer loads the catalogue compiled into the binary.
func NewDefaultLocalizer() (*Localizer, error) {
	return NewLocalizerFS(embedded, "locales")
}

// NewLocalizerFS loads all JSON catalogues found in dir of fsys.
func NewLocalizerFS(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	return l, nil
}

// GetString returns the localized string for a given key and language.
// lang may be a short code ("hi") or a full tag ("hi-IN").
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	if value, ok := l.Lookup(lang, key); ok {
		return value
	}
	return key
}

// Lookup is GetString without the key fallback; ok is false when neither the
// language nor English has the key.
func (l *Localizer) Lookup(lang, key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lang, _, _ = strings.Cut(lang, "-")
	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value, true
		}
	}

	// Fallback to the default language if the key is not found in the specified language
	if lang != DefaultLanguage {
		if enTranslations, ok := l.translations[DefaultLanguage]; ok {
			if value, ok := enTranslations[key]; ok {
				return value, true
			}
		}
	}

	return "", false
}

// Languages returns the codes of every loaded catalogue.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		out = append(out, lang)
	}
	return out
}
