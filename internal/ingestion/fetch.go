// Package ingestion turns a video transcript page into searchable content:
// fetch, extract, chunk, embed, store.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; YoutubeTalker/1.0)"

// FetchError represents an error during transcript page fetching.
type FetchError struct {
	URL     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Page holds the extracted content of a transcript page.
type Page struct {
	URL        string
	Title      string
	Transcript string
}

// Fetcher retrieves transcript pages over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher with the given timeout (0 uses DefaultTimeout).
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
	}
}

// transcriptSelectors are tried in order to locate the transcript body.
var transcriptSelectors = []string{
	"#transcript",
	".transcript",
	"ytd-transcript-renderer",
	"main",
	"article",
}

// Fetch retrieves a transcript page and extracts its title and transcript text.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (*Page, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &FetchError{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	title, transcript, err := ExtractContent(string(bodyBytes))
	if err != nil {
		return nil, &FetchError{URL: urlStr, Message: "failed to extract content", Cause: err}
	}

	return &Page{URL: urlStr, Title: title, Transcript: transcript}, nil
}

// ExtractContent parses HTML and returns the page title and transcript text.
// Noise elements are stripped first; the transcript is located via
// transcriptSelectors with a body fallback.
func ExtractContent(html string) (title, transcript string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title = strings.TrimSpace(doc.Find("meta[property='og:title']").AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .sidebar, .cookie-banner, .popup").Remove()

	var content *goquery.Selection
	for _, selector := range transcriptSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			content = selection.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	transcript = cleanWhitespace(content.Text())
	if transcript == "" {
		return title, "", fmt.Errorf("page contains no transcript text")
	}
	return title, transcript, nil
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// cleanWhitespace collapses runs of whitespace, including timestamps' trailing
// newlines, into single spaces.
func cleanWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
