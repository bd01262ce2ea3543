package textutil

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// CJK unified ideographs kept by normalization.
const (
	cjkFirst rune = 0x4E00
	cjkLast  rune = 0x9FA5
)

var yearTokenPattern = regexp.MustCompile(`\d{4}`)

// NormalizeTitle reduces a title to its comparison key. Full-width forms are
// folded to their narrow equivalents, letters are lower-cased, and every rune
// other than ASCII letters, digits, underscore, and CJK unified ideographs is
// dropped. The result is stable under repeated normalization.
func NormalizeTitle(value string) string {
	if value == "" {
		return ""
	}
	folded := width.Fold.String(value)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= cjkFirst && r <= cjkLast:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleMatch reports whether two titles refer to the same work under the
// lossy containment rule: the normalized forms are equal or one contains the
// other. Titles that normalize to nothing never match.
func TitleMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	na := NormalizeTitle(a)
	nb := NormalizeTitle(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// HasYearToken reports whether the query carries a four-digit run.
func HasYearToken(query string) bool {
	return yearTokenPattern.MatchString(query)
}

// YearMatches applies the production-year rule. A candidate without a year,
// or a query without a four-digit token, always agrees; otherwise the query
// must mention the candidate's year.
func YearMatches(query string, year int) bool {
	if year <= 0 || !HasYearToken(query) {
		return true
	}
	return strings.Contains(query, strconv.Itoa(year))
}
