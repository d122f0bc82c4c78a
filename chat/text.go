package chat

import (
	"regexp"
	"strings"
)

var beforeColonPattern = regexp.MustCompile(`^.*?:\s*`)

// CleanResponse strips surrounding quotation marks from a completion.
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)
	for (strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) > 1) ||
		(strings.HasPrefix(text, "'") && strings.HasSuffix(text, "'") && len(text) > 1) {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	return text
}

// RemoveAllBeforeColon drops a leading "speaker:" tag from a line.
// "Soupy: hello there" becomes "hello there".
func RemoveAllBeforeColon(text string) string {
	loc := beforeColonPattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[loc[1]:]
}

// SplitMessage chunks a long reply so each piece fits in maxLen
// characters, breaking at the last space when possible.
func SplitMessage(msg string, maxLen int) []string {
	var parts []string
	for len(msg) > maxLen {
		idx := strings.LastIndex(msg[:maxLen], " ")
		if idx == -1 {
			idx = maxLen
		}
		parts = append(parts, msg[:idx])
		msg = strings.TrimSpace(msg[idx:])
	}
	parts = append(parts, msg)
	return parts
}
