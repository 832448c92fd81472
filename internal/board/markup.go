// ABOUTME: Gemtext neutralization for untrusted post bodies
// ABOUTME: Escapes structural line prefixes and inline emphasis, builds quotes

package board

import (
	"regexp"
	"strings"
)

// structural tokens that gemtext (or common clients) interpret at line start,
// longest first so "###" is escaped as a whole
var lineTags = []string{"###", "##", "#", "=>", ">", "*", "```"}

var (
	inlineStar       = regexp.MustCompile(`\*([^*]+)\*`)
	inlineUnderscore = regexp.MustCompile(`_([^_]+)_`)
	lineBreaks       = regexp.MustCompile(`\r\n|\r`)
	excessBreaks     = regexp.MustCompile(`\n{3,}`)
)

// Escape neutralizes user content so it cannot forge protocol markup: each
// line is trimmed, inline emphasis pairs are bracketed, and a leading
// structural token is bracketed.
func Escape(value string) string {
	value = lineBreaks.ReplaceAllString(value, "\n")

	lines := strings.Split(value, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = inlineStar.ReplaceAllString(line, "[*]${1}[*]")
		line = inlineUnderscore.ReplaceAllString(line, "[_]${1}[_]")
		for _, tag := range lineTags {
			if strings.HasPrefix(line, tag) {
				line = "[" + tag + "]" + line[len(tag):]
				break
			}
		}
		lines[i] = line
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Quote escapes value and prefixes every nonempty line with "> ".
// Empty lines are dropped.
func Quote(value string) string {
	escaped := Escape(value)

	var lines []string
	for _, line := range strings.Split(escaped, "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, "> "+line)
	}
	return strings.Join(lines, "\n")
}

// Normalize unifies line breaks and collapses runs of three or more
// into exactly two.
func Normalize(text string) string {
	text = lineBreaks.ReplaceAllString(text, "\n")
	return excessBreaks.ReplaceAllString(text, "\n\n")
}
