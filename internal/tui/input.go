package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxInputLen is the maximum number of runes allowed in a form field.
const maxInputLen = 256

// editRune applies one key to a field value. backspace drops the last
// rune, ctrl+w the last word; other named keys leave the value alone.
func editRune(text, key string) string {
	switch key {
	case "backspace":
		_, size := utf8.DecodeLastRuneInString(text)
		return text[:len(text)-size]
	case "ctrl+w":
		trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
		i := strings.LastIndexFunc(trimmed, unicode.IsSpace)
		return trimmed[:i+1]
	case "space":
		key = " "
	}

	r, size := utf8.DecodeRuneInString(key)
	if size != len(key) || r == utf8.RuneError || unicode.IsControl(r) {
		return text
	}
	if utf8.RuneCountInString(text) >= maxInputLen {
		return text
	}
	return text + key
}

// truncateToHeight keeps the first maxLines lines of s. maxLines <= 0
// disables the limit.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	lines := strings.SplitAfterN(s, "\n", maxLines+1)
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "")
}
