package parser

import "strings"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// CleanText turns line breaks and tabs into spaces, collapses runs of spaces and trims the result.
// Cleaning an already cleaned text returns it unchanged.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = lineBreaks.Replace(text)
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	return strings.TrimSpace(text)
}
