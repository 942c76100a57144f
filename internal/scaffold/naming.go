package scaffold

import (
	"strings"
	"unicode"
)

// splitWords breaks an identifier in any common casing into lowercase words.
func splitWords(identifier string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(identifier)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			// An upper rune starts a new word unless it continues an acronym.
			if i > 0 && !unicode.IsUpper(runes[i-1]) {
				flush()
			} else if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				flush()
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return words
}

// PascalCase renders an identifier as UpperCamelCase.
func PascalCase(identifier string) string {
	var b strings.Builder
	for _, word := range splitWords(identifier) {
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

// CamelCase renders an identifier as lowerCamelCase.
func CamelCase(identifier string) string {
	pascal := PascalCase(identifier)
	if pascal == "" {
		return ""
	}
	return strings.ToLower(pascal[:1]) + pascal[1:]
}

// KebabCase renders an identifier as kebab-case.
func KebabCase(identifier string) string {
	return strings.Join(splitWords(identifier), "-")
}

// Pluralize applies basic English pluralization rules, enough for the entity
// names this generator meets.
func Pluralize(word string) string {
	if word == "" {
		return word
	}

	lower := strings.ToLower(word)
	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "z"), strings.HasSuffix(lower, "ch"),
		strings.HasSuffix(lower, "sh"):
		return word + "es"
	case strings.HasSuffix(lower, "y") && len(word) > 1 && !isVowel(rune(lower[len(lower)-2])):
		return word[:len(word)-1] + "ies"
	default:
		return word + "s"
	}
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiou", r)
}
