package websearch

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"w9-search/internal/utils/platformerrors"
)

// maxContentLength caps fetched page text; sources feed prompt context and
// must stay bounded.
const maxContentLength = 5000

// Fetcher downloads a result page and reduces it to readable text.
type Fetcher struct {
	http *resty.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		http: newSearchHTTPClient(timeout).
			SetHeader("User-Agent", browserUserAgent).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)),
	}
}

// Fetch retrieves the URL and extracts its visible text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	normalized := NormalizeURL(rawURL)
	if normalized == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			"unusable url: "+rawURL, nil, "")
	}

	resp, err := f.http.R().SetContext(ctx).Get(normalized)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"fetch failed: "+normalized, err, "")
	}
	if resp.IsError() {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"fetch failed: "+normalized+": status "+resp.Status(), nil, "")
	}

	text := ExtractReadableText(resp.Body())
	if text == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal,
			"no readable content: "+normalized, nil, "")
	}
	return text, nil
}

// NormalizeURL repairs the URL shapes search providers hand back:
// protocol-relative links and bare hostnames.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return ""
	}
	if !strings.Contains(raw, ".") {
		return ""
	}
	return "https://" + raw
}

// ExtractReadableText pulls paragraph text from an HTML document, skipping
// script, style and navigation chrome, capped at maxContentLength runes.
func ExtractReadableText(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "header", "footer", "iframe":
				return
			case "p", "li", "h1", "h2", "h3", "td":
				text := nodeText(n)
				if text != "" {
					if builder.Len() > 0 {
						builder.WriteString("\n")
					}
					builder.WriteString(text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := strings.TrimSpace(builder.String())
	runes := []rune(text)
	if len(runes) > maxContentLength {
		text = string(runes[:maxContentLength])
	}
	return text
}
