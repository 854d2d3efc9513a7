package text

import (
	"strings"
	"unicode/utf8"
)

// Truncate 把 s 限制在 max 字节以内并追加 "..."，切点退到字符边界。
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Preview returns the first max bytes of s with whitespace collapsed.
func Preview(s string, max int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), max)
}
