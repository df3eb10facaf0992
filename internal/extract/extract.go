// Package extract fetches full pages and reduces them to body text and
// a short extractive summary. It is an enrichment path, independent of
// the ingestion fetcher.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// minContentLen filters out pages where readability found nothing useful.
const minContentLen = 100

// Extractor fetches a page and extracts its readable body text.
type Extractor struct {
	client *http.Client
}

// New creates an Extractor with a bounded timeout and a redirect cap.
func New(timeout time.Duration) *Extractor {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Extract fetches the page at pageURL and returns its body text.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "serendip/1.0 (+feed aggregator)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("server returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentLen {
		return "", fmt.Errorf("no extractable content at %s", pageURL)
	}
	return text, nil
}
