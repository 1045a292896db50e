// Package i18n carries the active UI language through request context and
// resolves message codes against per-language translation tables.
package i18n

import (
	"context"
	"strings"
)

// DefaultLang is used when no preference can be determined.
const DefaultLang = "en"

type langKey struct{}

// WithLang returns a new context carrying the given language.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// Lang retrieves the language from context, defaulting to DefaultLang.
func Lang(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLang
}

// Supported reports whether a language has a translation table.
func Supported(lang string) bool {
	_, ok := tables[lang]
	return ok
}

// Languages returns the codes of all supported languages, default first.
func Languages() []string {
	langs := []string{DefaultLang}
	for lang := range tables {
		if lang != DefaultLang {
			langs = append(langs, lang)
		}
	}
	return langs
}

// DetectLanguage picks a supported language from an Accept-Language header
// value, falling back to DefaultLang.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		code := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(code, "-;"); i >= 0 {
			code = code[:i]
		}
		if Supported(code) {
			return code
		}
	}
	return DefaultLang
}

// T translates a message code for the given language. Unknown languages fall
// back to the default table; unknown codes fall back to the code itself.
func T(lang, code string) string {
	if table, ok := tables[lang]; ok {
		if msg, ok := table[code]; ok {
			return msg
		}
	}
	if msg, ok := tables[DefaultLang][code]; ok {
		return msg
	}
	return code
}

var tables = map[string]map[string]string{
	"en": {
		"required":                "Required",
		"invalid_phone":           "Phone number must contain at least 10 digits",
		"must_be_positive":        "Must be positive",
		"out_of_range":            "Out of range",
		"not_found":               "Not found",
		"not_found_or_forbidden":  "Not found or unauthorized",
		"status.in_progress":      "In Progress",
		"status.completed":        "Completed",
		"status.waiting_for_parts": "Waiting for Parts",
		"invoice.status.draft":    "Draft",
		"invoice.status.sent":     "Sent",
		"invoice.status.paid":     "Paid",
		"invoice.status.overdue":  "Overdue",
	},
	"fr": {
		"required":                "Requis",
		"invalid_phone":           "Le numéro de téléphone doit contenir au moins 10 chiffres",
		"must_be_positive":        "Doit être positif",
		"out_of_range":            "Hors limites",
		"not_found":               "Introuvable",
		"not_found_or_forbidden":  "Introuvable ou non autorisé",
		"status.in_progress":      "En cours",
		"status.completed":        "Terminé",
		"status.waiting_for_parts": "En attente de pièces",
		"invoice.status.draft":    "Brouillon",
		"invoice.status.sent":     "Envoyée",
		"invoice.status.paid":     "Payée",
		"invoice.status.overdue":  "En retard",
	},
}

// StatusCodes lists the translation codes for canonical job statuses, in
// display order.
var StatusCodes = []string{"status.in_progress", "status.completed", "status.waiting_for_parts"}
