// Package fetch retrieves raw, unnormalized records for one source via
// either feed syndication parsing or selector-based HTML scraping.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"serendip/internal/domain"
)

const userAgent = "serendip/1.0 (+feed aggregator)"

// Failure reasons carried by Error.
const (
	ReasonFeedParse = "feed-parse-failed"
	ReasonScrape    = "scrape-failed"
	ReasonBadConfig = "bad-config"
)

// Error is a typed fetch failure attributed to one source.
type Error struct {
	Reason string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Fetcher retrieves raw records for a source. It has no state beyond the
// HTTP client; failed fetches never mutate anything.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

// New creates a Fetcher with a bounded request timeout and a redirect cap.
func New(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	return &Fetcher{client: client, parser: parser}
}

// Fetch retrieves raw records using the source's configured strategy.
// Hard failures are returned as *Error; an empty result is not an error.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.RawRecord, error) {
	switch src.Strategy {
	case domain.StrategyFeed:
		return f.fetchFeed(ctx, src)
	case domain.StrategyScrape:
		return f.fetchScrape(ctx, src)
	default:
		return nil, &Error{Reason: ReasonBadConfig, Detail: fmt.Sprintf("unknown strategy %q", src.Strategy)}
	}
}
