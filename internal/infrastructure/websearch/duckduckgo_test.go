package websearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgFixture = `<!DOCTYPE html>
<html><body>
<div class="serp__results">
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">Go Documentation</a>
    </h2>
    <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F">Official Go documentation and tutorials.</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://gobyexample.com/">Go by Example</a>
    </h2>
    <a class="result__snippet" href="https://gobyexample.com/">Hands-on introduction to Go.</a>
  </div>
  <div class="result">
    <h2 class="result__title"><a class="result__a" href="javascript:void(0)">Broken</a></h2>
  </div>
</div>
</body></html>`

func TestParseDuckDuckGoResults(t *testing.T) {
	results := parseDuckDuckGoResults([]byte(ddgFixture))

	require.Len(t, results, 2, "entries without a usable URL are dropped")

	assert.Equal(t, "Go Documentation", results[0].Title)
	assert.Equal(t, "https://go.dev/doc/", results[0].URL, "redirect links decode to the target")
	assert.Equal(t, "Official Go documentation and tutorials.", results[0].Snippet)

	assert.Equal(t, "Go by Example", results[1].Title)
	assert.Equal(t, "https://gobyexample.com/", results[1].URL)
}

func TestParseDuckDuckGoResultsGarbage(t *testing.T) {
	assert.Empty(t, parseDuckDuckGoResults([]byte("not html at all")))
	assert.Empty(t, parseDuckDuckGoResults(nil))
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"redirect link", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage", "https://example.com/page"},
		{"direct https", "https://example.com", "https://example.com"},
		{"protocol relative", "//example.com/page", "https://example.com/page"},
		{"javascript href", "javascript:void(0)", ""},
		{"empty", "", ""},
		{"relative path", "/about", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveRedirect(tt.href))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com", "https://example.com"},
		{"//example.com/a", "https://example.com/a"},
		{"example.com/a", "https://example.com/a"},
		{"  https://example.com ", "https://example.com"},
		{"/relative/only", ""},
		{"nonsense", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.raw), "raw=%q", tt.raw)
	}
}

func TestExtractReadableText(t *testing.T) {
	page := `<html><head><title>T</title><style>p{}</style></head>
<body>
<nav><p>menu item</p></nav>
<h1>Heading</h1>
<p>First paragraph.</p>
<script>var x = "ignored";</script>
<p>Second paragraph.</p>
<footer><p>copyright</p></footer>
</body></html>`

	text := ExtractReadableText([]byte(page))

	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.NotContains(t, text, "menu item")
	assert.NotContains(t, text, "ignored")
	assert.NotContains(t, text, "copyright")
}

func TestExtractReadableTextCapped(t *testing.T) {
	long := "<p>"
	for i := 0; i < 2000; i++ {
		long += "word "
	}
	long += "</p>"

	text := ExtractReadableText([]byte(long))
	assert.LessOrEqual(t, len([]rune(text)), maxContentLength)
}
