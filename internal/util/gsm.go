package util

import "strings"

// gsmPunct replaces characters the email-to-SMS gateway mangles.
var gsmPunct = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", "\"",
	"”", "\"",
	"–", "-",
	"—", "-",
	"…", "...",
	" ", " ",
	"•", "*",
)

// SanitizeGSM reduces text to ASCII safe for the SMS email gateway.
// Non-ASCII runes left after punctuation replacement are dropped; the
// gateway's own conversion is unreliable.
func SanitizeGSM(text string) string {
	s := gsmPunct.Replace(text)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || (r >= 0x20 && r < 0x7f) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
