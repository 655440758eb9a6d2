package util

import "strings"

// smartPunct maps typographic punctuation to ASCII before filtering.
// Supplier names are pasted from phones and Google Maps and frequently
// arrive with curly quotes.
var smartPunct = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"‛", "'",
	"“", "\"",
	"”", "\"",
	"–", "-", // en dash
	"—", "-", // em dash
	" ", " ", // nbsp
)

// SanitizeSupplierName normalizes a trading name into the form used as the
// directory store key. Idempotent: sanitize(sanitize(x)) == sanitize(x).
func SanitizeSupplierName(raw string) string {
	s := smartPunct.Replace(raw)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-', r == '&', r == '\'':
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
