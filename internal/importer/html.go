package importer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nikbrunner/marks/internal/model"
)

// ParseHTML reads every anchor with an href from an HTML bookmark file.
// The link text becomes the title, falling back to the href. Folder
// headings are not reconstructed; every record lands at the root level.
// A document without links is not a bookmark file and fails with
// model.ErrImportFormat.
func ParseHTML(r io.Reader) ([]Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrImportFormat, err)
	}

	var records []Record

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.ToLower(n.Data) == "a" {
			href := strings.TrimSpace(getAttr(n, "href"))
			if href == "" {
				return
			}
			title := getTextContent(n)
			if title == "" {
				title = href
			}
			records = append(records, Record{URL: href, Title: title})
			return // Don't recurse into A
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no bookmark links found", model.ErrImportFormat)
	}
	return records, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
