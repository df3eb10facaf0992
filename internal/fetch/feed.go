package fetch

import (
	"context"

	"github.com/mmcdole/gofeed"

	"serendip/internal/domain"
)

// fetchFeed parses the source URL as a syndication feed and maps items
// into raw records. Any network or parse failure is a single typed
// error for the whole source.
func (f *Fetcher) fetchFeed(ctx context.Context, src domain.Source) ([]domain.RawRecord, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, &Error{Reason: ReasonFeedParse, Detail: err.Error()}
	}

	records := make([]domain.RawRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		records = append(records, itemRecord(item))
	}
	return records, nil
}

func itemRecord(item *gofeed.Item) domain.RawRecord {
	rec := domain.RawRecord{
		Title:       item.Title,
		Link:        item.Link,
		Summary:     item.Content,
		Description: item.Description,
		Published:   item.Published,
	}
	if rec.Link == "" {
		rec.Link = item.GUID
	}
	if rec.Published == "" {
		rec.Published = item.Updated
	}
	if item.Author != nil {
		rec.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		rec.Author = item.Authors[0].Name
	}
	if item.Image != nil {
		rec.Image = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if enc != nil && enc.URL != "" {
				rec.Image = enc.URL
				break
			}
		}
	}
	return rec
}
