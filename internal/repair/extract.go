package repair

import (
	"strings"
	"unicode/utf8"
)

const excerptRunes = 200

// stripFences trims whitespace, removes a wrapping triple-backtick fence
// (optionally language tagged) and any stray backticks at either end.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Drop the language tag line, e.g. "json\n".
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(s, "` \t\r\n")
	return s
}

// sliceObject returns the span from the first '{' to the last '}'.
func sliceObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// RemoveTrailingCommas drops every comma that is followed, ignoring
// whitespace, by '}' or ']'. Commas inside string literals are untouched.
func RemoveTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			if next := nextNonSpace(s, i+1); next == '}' || next == ']' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func nextNonSpace(s string, from int) byte {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[j]
		}
	}
	return 0
}

// Excerpt bounds raw model output for diagnostics: at most the first and
// last 200 runes.
func Excerpt(raw string) string {
	if utf8.RuneCountInString(raw) <= 2*excerptRunes {
		return raw
	}
	r := []rune(raw)
	return string(r[:excerptRunes]) + " … " + string(r[len(r)-excerptRunes:])
}
