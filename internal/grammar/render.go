package grammar

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// CapitalizeFirst upper-cases the first letter of s, leaving the rest of the
// string untouched. A grammar's start symbol is not required to begin a
// sentence with a capital (authors may chain several generate() calls
// together into one paragraph), so callers opt into this rather than
// Generate doing it unconditionally.
func CapitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return titleCaser.String(s[:1]) + s[1:]
}
