package i18n

import "errors"

var (
	ErrEmptyCatalog           = errors.New("i18n: catalog is empty")
	ErrParseCatalog           = errors.New("i18n: failed to parse catalog")
	ErrInvalidLanguage        = errors.New("i18n: invalid language code")
	ErrDefaultLanguageMissing = errors.New("i18n: default language has no messages")
)
