// Package i18n loads YAML message catalogs and resolves messages for a
// requested locale.
//
// A catalog is a YAML document keyed by language code at the top level with
// nested message keys below it:
//
//	en:
//	  verification:
//	    subject: "Confirm your email"
//	    greeting: "Hi %{name},"
//	de:
//	  verification:
//	    subject: "Bestätige deine E-Mail-Adresse"
//
// Locale negotiation uses golang.org/x/text/language, so "de-CH",
// "de;q=0.9, en;q=0.5" and similar inputs resolve to the closest supported
// catalog. Unknown locales and missing keys fall back to the default
// language, then to the key itself.
//
//	tr, err := i18n.New(catalogYAML, i18n.WithDefaultLanguage("en"))
//	if err != nil {
//		return err
//	}
//	subject := tr.T("de-CH", "verification.subject")
//	hello := tr.T("en", "verification.greeting", "name", "Alice")
//
// Middleware stores the negotiated locale in the request context; read it
// back with GetLocale.
package i18n
