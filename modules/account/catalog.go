package account

import (
	"embed"

	"github.com/dmitrymomot/projectauth/pkg/i18n"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog builds a translator over the embedded response messages.
func Catalog(opts ...i18n.Option) (*i18n.Translator, error) {
	return i18n.NewFromFS(localeFS, "locales/*.yaml", opts...)
}
