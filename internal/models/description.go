package models

import (
	"regexp"
	"strings"
)

const (
	headerOpen  = "[HEADER]"
	headerClose = "[/HEADER]"

	// DefaultTitle is used when a description has no header and no author is known
	DefaultTitle = "My Story"
)

var headerPattern = regexp.MustCompile(`(?s)\[HEADER\](.*?)\[/HEADER\]`)

// ComposeDescription encodes a title and body into the single description
// field accepted by the story API.
func ComposeDescription(title, body string) string {
	return headerOpen + title + headerClose + "\n" + body
}

// ParseDescription splits a description back into title and body.
// Without a header tag the title falls back to "<author>'s Story", or to
// DefaultTitle when author is empty, and the whole description is the body.
func ParseDescription(description, author string) (title, body string) {
	loc := headerPattern.FindStringSubmatchIndex(description)
	if loc == nil || loc[3] == loc[2] {
		return fallbackTitle(author), strings.TrimSpace(description)
	}

	title = description[loc[2]:loc[3]]
	rest := description[loc[1]:]
	if loc[0] == 0 && strings.HasPrefix(rest, "\n") {
		// composed form, recovered exactly
		return title, rest[1:]
	}

	// header embedded elsewhere: drop it and trim like the renderer does
	body = description[:loc[0]] + rest
	return strings.TrimSpace(title), strings.TrimSpace(body)
}

func fallbackTitle(author string) string {
	if author == "" {
		return DefaultTitle
	}
	return author + "'s Story"
}
