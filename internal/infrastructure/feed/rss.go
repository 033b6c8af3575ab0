package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"AVInsights/internal/domain"
)

// RSSFetcher parses RSS/Atom feeds via gofeed.
type RSSFetcher struct {
	parser *gofeed.Parser
}

var _ Fetcher = (*RSSFetcher)(nil)

// NewRSSFetcher builds a fetcher; userAgent may be empty for the default.
func NewRSSFetcher(userAgent string) *RSSFetcher {
	p := gofeed.NewParser()
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &RSSFetcher{parser: p}
}

// Type identifies the strategy inside the registry.
func (f *RSSFetcher) Type() string {
	return "rss"
}

// Fetch retrieves and parses one feed URL.
func (f *RSSFetcher) Fetch(ctx context.Context, url string) (*domain.Feed, error) {
	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	out := &domain.Feed{Title: parsed.Title, Items: make([]domain.FeedItem, 0, len(parsed.Items))}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		out.Items = append(out.Items, toFeedItem(item))
	}
	return out, nil
}

func toFeedItem(item *gofeed.Item) domain.FeedItem {
	fi := domain.FeedItem{
		Title:       item.Title,
		Link:        item.Link,
		Content:     item.Content,
		Snippet:     item.Description,
		PublishedAt: publishedAt(item),
	}

	// gofeed folds content:encoded into Content for most feeds but keeps
	// the raw extension around; carry both so the fallback order holds.
	if encoded, ok := item.Extensions["content"]; ok {
		if values, ok := encoded["encoded"]; ok && len(values) > 0 {
			fi.EncodedContent = values[0].Value
		}
	}
	if summary, ok := item.Custom["summary"]; ok {
		fi.Summary = summary
	}

	if item.Author != nil && item.Author.Name != "" {
		fi.Author = item.Author.Name
	} else if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		fi.Author = item.DublinCoreExt.Creator[0]
	}

	return fi
}

// gofeed parses both isoDate-style and RFC-822 pubDate values; prefer the
// publish date, fall back to the update date.
func publishedAt(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		return &t
	}
	if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		return &t
	}
	return nil
}
