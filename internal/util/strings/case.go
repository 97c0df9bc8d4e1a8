package strings

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request)
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				// Add underscore before uppercase letter if:
				// 1. Previous char is lowercase
				// 2. Next char is lowercase (for acronyms like HTTPRequest -> http_request)
				if unicode.IsLower(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ToCamelCase converts snake_case to camelCase. An underscore followed by a
// letter or digit is removed and the next character upper-cased; the case of
// the first character is kept (book_author -> bookAuthor, Book_author ->
// BookAuthor).
func ToCamelCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' && i+1 < len(runes) && isWordRune(runes[i+1]) {
			result.WriteRune(unicode.ToUpper(runes[i+1]))
			i++
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// ToPascalCase converts snake_case to PascalCase
func ToPascalCase(s string) string {
	camel := []rune(ToCamelCase(s))
	if len(camel) == 0 {
		return ""
	}
	camel[0] = unicode.ToUpper(camel[0])
	return string(camel)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
