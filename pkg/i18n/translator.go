package i18n

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when no option overrides it.
const DefaultLanguage = "en"

// Translator resolves catalog messages. It is immutable after construction
// and safe for concurrent use.
type Translator struct {
	catalog     map[string]map[string]any
	langs       []string
	matcher     language.Matcher
	defaultLang string
	logMissing  bool
	logger      *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithDefaultLanguage sets the fallback language.
func WithDefaultLanguage(lang string) Option {
	return func(t *Translator) {
		if lang != "" {
			t.defaultLang = strings.ToLower(lang)
		}
	}
}

// WithLogger sets the logger used for missing-message reports.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMissingTranslationsLogging logs a warning for every missing key.
func WithMissingTranslationsLogging(enabled bool) Option {
	return func(t *Translator) {
		t.logMissing = enabled
	}
}

// New builds a Translator from one or more YAML catalogs. Later catalogs
// extend and override earlier ones per language.
func New(catalogs [][]byte, opts ...Option) (*Translator, error) {
	t := &Translator{
		catalog:     make(map[string]map[string]any),
		defaultLang: DefaultLanguage,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, raw := range catalogs {
		var doc map[string]map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Join(ErrParseCatalog, err)
		}
		for lang, messages := range doc {
			lang = strings.ToLower(lang)
			if _, err := language.Parse(lang); err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
			}
			if t.catalog[lang] == nil {
				t.catalog[lang] = make(map[string]any, len(messages))
			}
			maps.Copy(t.catalog[lang], messages)
		}
	}

	if len(t.catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	if _, ok := t.catalog[t.defaultLang]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrDefaultLanguageMissing, t.defaultLang)
	}

	// The default language goes first: the matcher falls back to index 0.
	others := slices.DeleteFunc(slices.Sorted(maps.Keys(t.catalog)), func(l string) bool { return l == t.defaultLang })
	t.langs = append([]string{t.defaultLang}, others...)

	tags := make([]language.Tag, len(t.langs))
	for i, lang := range t.langs {
		tags[i] = language.MustParse(lang)
	}
	t.matcher = language.NewMatcher(tags)
	return t, nil
}

// NewFromFS loads every file matching pattern in fsys as a catalog.
func NewFromFS(fsys fs.FS, pattern string, opts ...Option) (*Translator, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, errors.Join(ErrParseCatalog, err)
	}
	slices.Sort(names)

	catalogs := make([][]byte, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", name, err)
		}
		catalogs = append(catalogs, raw)
	}
	return New(catalogs, opts...)
}

// Languages returns the supported language codes, default first.
func (t *Translator) Languages() []string {
	return slices.Clone(t.langs)
}

// DefaultLanguage returns the fallback language code.
func (t *Translator) DefaultLanguage() string {
	return t.defaultLang
}

// Match returns the supported language closest to the given preferences.
// Each preference may be a single tag or a full Accept-Language value.
func (t *Translator) Match(prefs ...string) string {
	var tags []language.Tag
	for _, pref := range prefs {
		if pref = strings.TrimSpace(pref); pref == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return t.defaultLang
	}

	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.defaultLang
	}
	return t.langs[idx]
}

// T returns the message for key in the language closest to lang, with
// %{name} placeholders replaced from args given as name, value pairs.
func (t *Translator) T(lang, key string, args ...string) string {
	return substitute(t.lookup(t.Match(lang), key), args)
}

// Tc is T with the locale taken from ctx.
func (t *Translator) Tc(ctx context.Context, key string, args ...string) string {
	return t.T(GetLocale(ctx), key, args...)
}

// N selects a plural form of key: key.zero for 0 (falling back to
// key.other), key.one for 1, key.other otherwise. %{count} is filled in
// unless args already carry it.
func (t *Translator) N(lang, key string, n int, args ...string) string {
	lang = t.Match(lang)

	var candidates []string
	switch n {
	case 0:
		candidates = []string{key + ".zero", key + ".other"}
	case 1:
		candidates = []string{key + ".one"}
	default:
		candidates = []string{key + ".other"}
	}

	msg, found := "", false
search:
	for _, l := range []string{lang, t.defaultLang} {
		for _, c := range candidates {
			if msg, found = t.find(l, c); found {
				break search
			}
		}
	}
	if !found {
		msg = t.lookup(lang, key)
	}

	if !hasParam(args, "count") {
		args = append(slices.Clone(args), "count", strconv.Itoa(n))
	}
	return substitute(msg, args)
}

func (t *Translator) lookup(lang, key string) string {
	if msg, ok := t.resolve(lang, key); ok {
		return msg
	}
	if t.logMissing {
		t.logger.Warn("translation not found", slog.String("lang", lang), slog.String("key", key))
	}
	return key
}

// resolve looks key up in lang, then in the default language.
func (t *Translator) resolve(lang, key string) (string, bool) {
	if msg, ok := t.find(lang, key); ok {
		return msg, true
	}
	if lang != t.defaultLang {
		return t.find(t.defaultLang, key)
	}
	return "", false
}

// find walks dot-separated keys through nested maps.
func (t *Translator) find(lang, key string) (string, bool) {
	var current any = t.catalog[lang]
	for part := range strings.SplitSeq(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		if current, ok = m[part]; !ok {
			return "", false
		}
	}
	s, ok := current.(string)
	return s, ok
}

var paramRegex = regexp.MustCompile(`%\{([^}]+)\}`)

func substitute(tmpl string, args []string) string {
	if len(args) < 2 {
		return tmpl
	}
	params := make(map[string]string, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		params[args[i]] = args[i+1]
	}
	return paramRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		if val, ok := params[match[2:len(match)-1]]; ok {
			return val
		}
		return match
	})
}

func hasParam(args []string, name string) bool {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == name {
			return true
		}
	}
	return false
}
