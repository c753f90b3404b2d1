package utils

import (
	"fmt"
	"strings"
	"unicode"
)

func ToString(value interface{}) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

// Camelize turns a hyphenated name into lower camel case,
// "background-color" becomes "backgroundColor".
func Camelize(src string) string {
	res := []rune{}
	startW := false
	for _, c := range src {
		if c == '-' {
			startW = len(res) > 0
			continue
		}
		ch := c
		if startW {
			ch = unicode.ToUpper(c)
			startW = false
		}
		res = append(res, ch)
	}
	return string(res)
}

// Hyphenate is the reverse of Camelize.
func Hyphenate(src string) string {
	var b strings.Builder
	for _, c := range src {
		if unicode.IsUpper(c) {
			b.WriteRune('-')
			b.WriteRune(unicode.ToLower(c))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
