package normalize

import "strings"

// IsDateFormat reports whether a number format pattern marks its number as a
// date serial: the pattern contains any of d, m, y, h or s in either case.
// The test runs on the raw pattern, so letters inside quoted literals or
// bracketed sections count too.
func IsDateFormat(pattern string) bool {
	if pattern == "" || strings.EqualFold(pattern, "general") {
		return false
	}
	return strings.ContainsAny(pattern, "dmyhsDMYHS")
}
