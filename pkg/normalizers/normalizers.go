// Package normalizers provides brand name normalization for entity identity
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("remove_punctuation", RemovePunctuation)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("nbrand", NormalizeBrandName)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

var spaceRe = regexp.MustCompile(`\s+`)

// CollapseWhitespace reduces any whitespace run to a single space
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// corporate suffixes stripped during brand normalization, longest first
var brandSuffixes = []string{
	" incorporated", " corporation", " international", " enterprises",
	" holdings", " technologies", " industries", " company", " group",
	" gmbh", " s.a.", " n.v.", " inc.", " corp.", " ltd.", " l.l.c.",
	" plc", " llc", " inc", " corp", " ltd", " co.", " ag", " sa", " co",
}

// NormalizeBrandName produces the canonical identity key for a brand mention.
// Two mentions that normalize identically map to one brand node.
//   - lowercase, trim
//   - strip leading "the"
//   - strip corporate suffixes repeatedly ("Acme Corp Inc." -> "acme")
//   - drop punctuation, collapse whitespace
func NormalizeBrandName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "the ")

	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range brandSuffixes {
			if strings.HasSuffix(s, suffix) {
				s = strings.TrimSpace(s[:len(s)-len(suffix)])
				stripped = true
			}
		}
	}

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) || r == '-' || r == '&' {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// DedupeBrands collapses mentions that normalize to the same canonical name.
// The first mention wins the display name; all other variants become aliases.
func DedupeBrands(names []string) map[string][]string {
	canonical := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for _, name := range names {
		name = CollapseWhitespace(name)
		if name == "" {
			continue
		}
		key := NormalizeBrandName(name)
		if key == "" {
			continue
		}
		if _, ok := canonical[key]; !ok {
			canonical[key] = []string{}
			seen[key] = map[string]bool{}
		}
		if !seen[key][name] {
			seen[key][name] = true
			canonical[key] = append(canonical[key], name)
		}
	}

	return canonical
}
