package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page contains the visible content of an HTML document
type Page struct {
	Title string
	Text  string // whitespace-collapsed visible text
}

// Format tells how a corpus document is encoded
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name. The empty string means plain text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case "", FormatText:
		return FormatText, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown format %q", name)
	}
}

// HTML parses a document and returns its title and visible text
func HTML(body io.Reader) (*Page, error) {
	root, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	page := &Page{
		Title: cleanText(doc.Find("title").First().Text()),
	}

	doc.Find("script, style, noscript, template, head").Remove()
	page.Text = cleanText(visibleText(root))
	return page, nil
}

// Texts converts every document to plain text according to format
func Texts(docs []string, format Format) ([]string, error) {
	if format != FormatHTML {
		return docs, nil
	}
	out := make([]string, len(docs))
	for i, doc := range docs {
		page, err := HTML(strings.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out[i] = page.Text
	}
	return out, nil
}

// visibleText joins text nodes with spaces so adjacent blocks do not merge
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
