package browser

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var skippedTextElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
}

// ExtractText returns the human readable text of an HTML document with
// whitespace collapsed to single spaces.
func ExtractText(document string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(document))

	var (
		b     strings.Builder
		skip  int
		prior bool
	)

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTextElements[atom.Lookup(name)] {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTextElements[atom.Lookup(name)] && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}

			for _, word := range strings.Fields(string(tokenizer.Text())) {
				if prior {
					b.WriteByte(' ')
				}

				b.WriteString(word)
				prior = true
			}
		}
	}
}

// Excerpt cuts text to at most limit runes, marking the cut.
func Excerpt(text string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit]) + "…"
}
