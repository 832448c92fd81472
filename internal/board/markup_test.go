// ABOUTME: Tests for gemtext neutralization, quoting and line normalization
// ABOUTME: User content must never produce structural gemtext lines

package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"trimmed lines", "  hello  \n  world ", "hello\nworld"},
		{"heading 1", "# title", "[#] title"},
		{"heading 2", "## title", "[##] title"},
		{"heading 3", "### title", "[###] title"},
		{"link", "=> gemini://evil.example", "[=>] gemini://evil.example"},
		{"blockquote", "> quoted", "[>] quoted"},
		{"list", "* item", "[*] item"},
		{"fence", "```go", "[```]go"},
		{"inline star", "so *bold* move", "so [*]bold[*] move"},
		{"inline underscore", "an _italic_ word", "an [_]italic[_] word"},
		{"tag after trim", "   => sneaky", "[=>] sneaky"},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"only mid-line tags", "a # b => c", "a # b => c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.input))
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "> hi there", Quote("hi there"))
	assert.Equal(t, "> a\n> b", Quote("a\n\n\nb"))
	assert.Equal(t, "> [=>] x", Quote("=> x"))
	assert.Equal(t, "", Quote("   "))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\n\nb", Normalize("a\r\n\r\n\r\n\r\nb"))
	assert.Equal(t, "a\n\nb", Normalize("a\n\nb"))
	assert.Equal(t, "a\nb", Normalize("a\rb"))
}
