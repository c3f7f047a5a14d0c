package websearch

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"w9-search/internal/domain/source"
)

// parseDuckDuckGoResults walks the HTML results page. Each hit is a
// div.result holding an a.result__a link and an a.result__snippet.
func parseDuckDuckGoResults(body []byte) []source.SearchResult {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var results []source.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "result") && n.Data == "div" {
			if r, ok := parseResultNode(n); ok {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func parseResultNode(n *html.Node) (source.SearchResult, bool) {
	var r source.SearchResult

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" {
			switch {
			case hasClass(node, "result__a"):
				r.Title = nodeText(node)
				r.URL = resolveRedirect(attrValue(node, "href"))
			case hasClass(node, "result__snippet"):
				r.Snippet = nodeText(node)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	if r.URL == "" {
		return r, false
	}
	return r, true
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<encoded> redirect links
// and normalizes protocol-relative URLs.
func resolveRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if strings.HasPrefix(parsed.Path, "/l/") || strings.HasPrefix(href, "/l/") {
		if target := parsed.Query().Get("uddg"); target != "" {
			href = target
		}
	}

	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			builder.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(builder.String())
}
