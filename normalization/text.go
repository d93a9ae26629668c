package normalization

import (
	"regexp"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	tokenSeparators = regexp.MustCompile(`[\s_./|-]+`)
	tokenAllowed    = regexp.MustCompile(`[^a-z0-9가-힣]`)

	// Full-width digits and latin show up in public-data feeds.
	foldTransformer = transform.Chain(width.Fold, norm.NFKC)
)

// Fold converts full-width characters to their half-width form and applies
// NFKC so that feed text compares byte-for-byte with catalog text.
func Fold(value string) string {
	folded, _, err := transform.String(foldTransformer, value)
	if err != nil {
		return value
	}
	return folded
}

// Normalize trims and lowercases a value.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeCategoryToken lowercases a token, strips separator runs and then
// drops everything outside latin letters, digits and Hangul syllables.
func NormalizeCategoryToken(value string) string {
	lowered := Normalize(Fold(value))
	stripped := tokenSeparators.ReplaceAllString(lowered, "")
	return tokenAllowed.ReplaceAllString(stripped, "")
}

// CompactSpaces collapses whitespace runs into single spaces.
func CompactSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// FirstNonBlank returns the first value with non-whitespace content, trimmed.
func FirstNonBlank(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
