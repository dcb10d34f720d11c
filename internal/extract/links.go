package extract

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// LinkKind tells how a PDF link was found on a landing page
type LinkKind string

const (
	// LinkKindMeta is a citation_pdf_url meta tag (Highwire/Google Scholar)
	LinkKindMeta LinkKind = "meta"
	// LinkKindAnchor is an <a> element pointing at a PDF
	LinkKindAnchor LinkKind = "anchor"
)

// PDFLink is a candidate PDF location found on an HTML page
type PDFLink struct {
	URL  string
	Kind LinkKind
	Text string
}

// FindPDFLinks returns the PDF links of an article landing page, best first:
// citation_pdf_url meta tags, then anchors whose target or text names a PDF.
// Relative links are resolved against sourceURL.
func FindPDFLinks(htmlContent string, sourceURL string) ([]PDFLink, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	var metas, anchors []PDFLink
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				if strings.EqualFold(attr(n, "name"), "citation_pdf_url") {
					if u := resolveURL(baseURL, attr(n, "content")); u != "" {
						metas = append(metas, PDFLink{URL: u, Kind: LinkKindMeta})
					}
				}
			case "a":
				href := strings.TrimSpace(attr(n, "href"))
				text := nodeText(n)
				if href != "" && looksLikePDF(href, text) {
					if u := resolveURL(baseURL, href); u != "" {
						anchors = append(anchors, PDFLink{URL: u, Kind: LinkKindAnchor, Text: text})
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return dedupeLinks(append(metas, anchors...)), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText concatenates the text below n
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// looksLikePDF reports whether an anchor points at a PDF download
func looksLikePDF(href, text string) bool {
	lower := strings.ToLower(href)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	if path.Ext(lower) == ".pdf" || strings.Contains(lower, "/pdf/") || strings.HasSuffix(lower, "/pdf") {
		return true
	}
	t := strings.ToLower(text)
	return t == "pdf" || strings.HasPrefix(t, "download pdf") || strings.HasPrefix(t, "full text pdf")
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)

	// Skip anchors
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	// Skip javascript: and mailto: links
	if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

// dedupeLinks removes duplicate links, keeping the first occurrence
func dedupeLinks(links []PDFLink) []PDFLink {
	seen := make(map[string]bool)
	var unique []PDFLink

	for _, l := range links {
		if !seen[l.URL] {
			seen[l.URL] = true
			unique = append(unique, l)
		}
	}

	return unique
}
