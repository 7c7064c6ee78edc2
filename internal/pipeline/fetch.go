package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrUnsupportedURL is returned for URLs that are not absolute http(s) URLs.
var ErrUnsupportedURL = errors.New("unsupported url")

// Page is the text content extracted from a source website page.
type Page struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Headings    []string `json:"headings,omitempty"`
	Paragraphs  []string `json:"paragraphs,omitempty"`
	Links       []Link   `json:"links,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// Link is a navigation link found on the page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// PageFetcher loads and extracts a page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewFetcher creates a fetcher with a request timeout and a body size cap.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		maxBytes:  maxBytes,
		userAgent: "sitesmith/1.0 (+https://github.com/dshills/sitesmith)",
	}
}

// ParseSourceURL accepts absolute http and https URLs only.
func ParseSourceURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	return u, nil
}

// Fetch downloads rawURL and extracts its text content.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := ParseSourceURL(rawURL)
	if err != nil {
		return Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("fetch %s: unexpected status %s", u, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "text/html" && mediaType != "application/xhtml+xml" {
			return Page{}, fmt.Errorf("fetch %s: content type %q is not html", u, mediaType)
		}
	}

	page, err := Extract(resp.Request.URL, io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return Page{}, fmt.Errorf("extract %s: %w", u, err)
	}
	return page, nil
}

// Extract walks an HTML document and collects its visible text structure.
// Relative links and image sources are resolved against base.
func Extract(base *url.URL, r io.Reader) (Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Page{}, err
	}

	page := Page{URL: base.String()}
	seenLinks := make(map[string]bool)
	var walk func(n *html.Node, inNav bool)
	walk = func(n *html.Node, inNav bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "svg":
				return
			case "title":
				if page.Title == "" {
					page.Title = collapse(textOf(n))
				}
				return
			case "meta":
				if strings.EqualFold(attr(n, "name"), "description") && page.Description == "" {
					page.Description = collapse(attr(n, "content"))
				}
			case "h1", "h2", "h3":
				if t := collapse(textOf(n)); t != "" {
					page.Headings = append(page.Headings, t)
				}
				return
			case "p", "li", "blockquote":
				if !inNav {
					if t := collapse(textOf(n)); len(t) > 1 {
						page.Paragraphs = append(page.Paragraphs, t)
					}
				}
			case "nav", "header":
				inNav = true
			case "a":
				if inNav {
					href := resolve(base, attr(n, "href"))
					text := collapse(textOf(n))
					if href != "" && text != "" && !seenLinks[href] {
						seenLinks[href] = true
						page.Links = append(page.Links, Link{Text: text, Href: href})
					}
				}
			case "img":
				if src := resolve(base, attr(n, "src")); src != "" {
					page.Images = append(page.Images, src)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inNav)
		}
	}
	walk(doc, false)
	return page, nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "javascript:") || strings.HasPrefix(ref, "mailto:") {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}
