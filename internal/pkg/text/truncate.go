package text

import "unicode/utf8"

// Truncate 按 rune 截断 s，超出 max 时追加 "..."；max<=0 表示不截断。
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
