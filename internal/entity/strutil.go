package entity

import (
	"strings"
	"unicode"
)

// SnakeToCamel converts a snake_case name to camelCase. The first component
// is kept as-is and every following component is capitalized, so "_abc"
// yields "Abc" and trailing underscores are dropped.
func SnakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		b.WriteString(capitalize(part))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
