package search

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	tagRe        = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// Normalizer converts snippet markup (search engines return bold tags and
// entities) into compact markdown.
type Normalizer struct {
	converter *md.Converter
}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Normalizer{converter: converter}
}

// Normalize returns s as trimmed markdown. Plain text only has its entities
// decoded and whitespace collapsed.
func (n *Normalizer) Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if tagRe.MatchString(s) {
		converted, err := n.converter.ConvertString(s)
		if err == nil {
			s = converted
		} else {
			s = textContent(s)
		}
	} else {
		s = html.UnescapeString(s)
	}

	s = whitespaceRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// textContent extracts the text nodes of an HTML fragment.
func textContent(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
