// Package metadata reads page details (title, description, favicon) for
// bookmark URLs and checks bookmarks in bulk with a bounded worker pool.
package metadata

//go:generate mockgen -source=fetcher.go -destination=mock/fetcher.go -package=mock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a page is read looking for <head> tags.
const maxBodyBytes = 1 << 20

// Page is the metadata extracted from a URL.
type Page struct {
	Title       string
	Description string
	Favicon     string
}

// Fetcher retrieves page metadata for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// HTTPFetcher fetches pages over HTTP and parses their <head>.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	policy    *bluemonday.Policy
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Follow redirects but limit to 10
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: "marks/1.0 (+bookmark metadata)",
		policy:    bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true),
	}
}

// Fetch downloads rawURL and extracts its metadata. The title falls back to
// the host name and the favicon to /favicon.ico on the same origin.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, &StatusError{Code: resp.StatusCode}
	}

	page, err := Parse(io.LimitReader(resp.Body, maxBodyBytes), resp.Request.URL)
	if err != nil {
		return Page{}, err
	}

	page.Title = f.clean(page.Title)
	page.Description = f.clean(page.Description)
	if page.Title == "" {
		page.Title = base.Hostname()
	}
	return page, nil
}

// clean strips markup and collapses whitespace.
func (f *HTTPFetcher) clean(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(f.policy.Sanitize(s))), " ")
}

// Parse extracts metadata from an HTML document. Relative favicon links are
// resolved against base.
func Parse(r io.Reader, base *url.URL) (Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Page{}, err
	}

	var page Page
	var ogDescription string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if page.Title == "" {
					page.Title = strings.TrimSpace(getTextContent(n))
				}
			case "meta":
				name := strings.ToLower(getAttr(n, "name"))
				prop := strings.ToLower(getAttr(n, "property"))
				switch {
				case name == "description" && page.Description == "":
					page.Description = strings.TrimSpace(getAttr(n, "content"))
				case prop == "og:description" || name == "og:description":
					ogDescription = strings.TrimSpace(getAttr(n, "content"))
				}
			case "link":
				rel := strings.ToLower(getAttr(n, "rel"))
				if page.Favicon == "" && strings.Contains(rel, "icon") {
					page.Favicon = resolve(base, getAttr(n, "href"))
				}
			case "body":
				// Metadata lives in <head>.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if page.Description == "" {
		page.Description = ogDescription
	}
	if page.Favicon == "" && base != nil {
		page.Favicon = resolve(base, "/favicon.ico")
	}
	return page, nil
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// getAttr returns the value of an attribute, or empty string if not found.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
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
	return text.String()
}

// NormalizeURL prefixes https:// when raw has no http(s) scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}
