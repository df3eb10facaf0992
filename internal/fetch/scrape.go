package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"serendip/internal/domain"
)

// fetchScrape fetches the source URL as HTML and extracts records via
// the configured selector set. Elements missing a title or link are
// skipped, not failed; zero matched elements is an empty result, while
// a missing selector set or a network error is a hard failure.
func (f *Fetcher) fetchScrape(ctx context.Context, src domain.Source) ([]domain.RawRecord, error) {
	sel := src.Selectors
	if sel.Empty() {
		return nil, &Error{Reason: ReasonBadConfig, Detail: "scrape source has no selector set"}
	}

	doc, err := f.fetchDocument(ctx, src.URL)
	if err != nil {
		return nil, &Error{Reason: ReasonScrape, Detail: err.Error()}
	}

	origin := originOf(src.URL)

	var records []domain.RawRecord
	doc.Find(sel.Container).Each(func(_ int, container *goquery.Selection) {
		title := strings.TrimSpace(container.Find(sel.Headline).First().Text())
		link := firstAttr(container, sel.Link, "href")
		if title == "" || link == "" {
			return
		}

		rec := domain.RawRecord{
			Title: title,
			Link:  resolveAgainst(origin, link),
		}
		if sel.Summary != "" {
			rec.Summary = strings.TrimSpace(container.Find(sel.Summary).First().Text())
		}
		if sel.Image != "" {
			if img := firstAttr(container, sel.Image, "src"); img != "" {
				rec.Image = resolveAgainst(origin, img)
			}
		}
		if sel.Date != "" {
			date := container.Find(sel.Date).First()
			rec.Published = strings.TrimSpace(date.Text())
			if dt, ok := date.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
				rec.Published = strings.TrimSpace(dt)
			}
		}
		records = append(records, rec)
	})

	return records, nil
}

func (f *Fetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// firstAttr reads an attribute from the first selector match, falling
// back to the container itself when the selector matches nothing (the
// container may itself be the anchor).
func firstAttr(container *goquery.Selection, selector, attr string) string {
	if v, ok := container.Find(selector).First().Attr(attr); ok {
		return strings.TrimSpace(v)
	}
	if v, ok := container.Attr(attr); ok && container.Is(selector) {
		return strings.TrimSpace(v)
	}
	return ""
}

// originOf reduces a URL to its scheme+host, the base relative links
// are resolved against.
func originOf(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}
}

func resolveAgainst(origin *url.URL, link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if u.IsAbs() || origin == nil {
		return link
	}
	return origin.ResolveReference(u).String()
}
