package i18n

import (
	"net/http"
	"strings"
)

// LangExtractor returns the raw language preferences carried by a request,
// highest priority first.
type LangExtractor func(r *http.Request) []string

// DefaultLangExtractor reads the "lang" query parameter, the "lang" cookie
// and the Accept-Language header, in that order.
func DefaultLangExtractor() LangExtractor {
	return func(r *http.Request) []string {
		var prefs []string
		if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
			prefs = append(prefs, lang)
		}
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			prefs = append(prefs, c.Value)
		}
		if accept := r.Header.Get("Accept-Language"); accept != "" {
			prefs = append(prefs, accept)
		}
		return prefs
	}
}

// Middleware negotiates the request locale against the translator's
// languages and stores it in the request context. A nil extractor uses
// DefaultLangExtractor.
func Middleware(t *Translator, extr LangExtractor) func(http.Handler) http.Handler {
	if extr == nil {
		extr = DefaultLangExtractor()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := t.Match(extr(r)...)
			next.ServeHTTP(w, r.WithContext(SetLocale(r.Context(), lang)))
		})
	}
}
