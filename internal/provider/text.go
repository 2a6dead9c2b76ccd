package provider

import "strings"

// lineAt returns line n of text without its line terminator
func lineAt(text string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return "", false
		}
		text = text[idx+1:]
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSuffix(text, "\r"), true
}

// isWordRune matches the id alphabet [A-Za-z0-9_-]
func isWordRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// wordAt returns the id-like word touching pos, with its range
func wordAt(text string, pos Position) (string, Range, bool) {
	line, ok := lineAt(text, pos.Line)
	if !ok {
		return "", Range{}, false
	}
	runes := []rune(line)
	if pos.Character < 0 || pos.Character > len(runes) {
		return "", Range{}, false
	}

	start, end := pos.Character, pos.Character
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	if start == end {
		return "", Range{}, false
	}

	r := Range{
		Start: Position{Line: pos.Line, Character: start},
		End:   Position{Line: pos.Line, Character: end},
	}
	return string(runes[start:end]), r, true
}
