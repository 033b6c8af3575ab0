package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"AVInsights/internal/config"
	"AVInsights/internal/domain"
	"AVInsights/internal/ports"
	"AVInsights/internal/textutil"
)

const defaultTitle = "Untitled"

// IngesterDeps wires all driven adapters into the ingestion use case.
type IngesterDeps struct {
	Sources   ports.SourceStore
	Articles  ports.ArticleStore
	Audit     ports.IngestionLog
	Fetchers  ports.FetcherResolver
	Extractor ports.Extractor
	Logger    *slog.Logger
}

// Ingester walks the active sources, normalizes their items and upserts
// article rows keyed on URL.
type Ingester struct {
	sources    ports.SourceStore
	articles   ports.ArticleStore
	audit      ports.IngestionLog
	fetchers   ports.FetcherResolver
	extractor  ports.Extractor
	cfg        config.FulltextConfig
	sourceType string
	logger     *slog.Logger
}

// NewIngester constructs the ingestion use case.
func NewIngester(deps IngesterDeps, cfg config.FulltextConfig, sourceType string) *Ingester {
	return &Ingester{
		sources:    deps.Sources,
		articles:   deps.Articles,
		audit:      deps.Audit,
		fetchers:   deps.Fetchers,
		extractor:  deps.Extractor,
		cfg:        cfg,
		sourceType: sourceType,
		logger:     deps.Logger,
	}
}

// IngestAll processes every active source sequentially. One source's total
// failure is isolated: it is logged and the loop proceeds. Only a failure
// to read the source list escapes.
func (i *Ingester) IngestAll(ctx context.Context) error {
	sources, err := i.sources.ListActiveSources(ctx, i.sourceType)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	i.logger.Info("ingestion started", "sources", len(sources))
	for _, src := range sources {
		i.ingestSource(ctx, src)
	}
	i.logger.Info("ingestion finished")
	return nil
}

func (i *Ingester) ingestSource(ctx context.Context, src domain.Source) {
	log := i.logger.With("source", src.Name, "source_id", src.ID)
	i.audit.Append(ctx, domain.IngestionLogEntry{
		SourceID: src.ID,
		Status:   domain.IngestStarted,
		Message:  "Starting feed fetch",
	})

	fetcher, err := i.fetchers.Resolve(src.Type)
	if err != nil {
		log.Error("no fetcher for source", "error", err)
		i.audit.Append(ctx, domain.IngestionLogEntry{
			SourceID: src.ID,
			Status:   domain.IngestFetchError,
			Message:  err.Error(),
		})
		return
	}

	parsed, err := fetcher.Fetch(ctx, src.URL)
	if err != nil {
		log.Error("feed fetch failed", "error", err)
		i.audit.Append(ctx, domain.IngestionLogEntry{
			SourceID: src.ID,
			Status:   domain.IngestFetchError,
			Message:  err.Error(),
		})
		return
	}

	log.Info("feed fetched", "items", len(parsed.Items))
	i.audit.Append(ctx, domain.IngestionLogEntry{
		SourceID: src.ID,
		Status:   domain.IngestFetched,
		Message:  fmt.Sprintf("Fetched %d items", len(parsed.Items)),
		Meta:     map[string]any{"itemCount": len(parsed.Items)},
	})

	// The attempt counter caps paid extraction work per feed, counting
	// attempts rather than successes.
	attempts := 0
	rows := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		row, attempted := i.toArticleRow(ctx, src, item, attempts < i.cfg.MaxPerFeed)
		if attempted {
			attempts++
		}
		if row == nil {
			continue
		}
		rows = append(rows, *row)
	}

	if err := i.articles.UpsertArticles(ctx, rows); err != nil {
		log.Error("article upsert failed", "error", err)
		i.audit.Append(ctx, domain.IngestionLogEntry{
			SourceID: src.ID,
			Status:   domain.IngestDBError,
			Message:  err.Error(),
		})
		return
	}

	log.Info("articles upserted", "count", len(rows))
	i.audit.Append(ctx, domain.IngestionLogEntry{
		SourceID: src.ID,
		Status:   domain.IngestSuccess,
		Message:  fmt.Sprintf("Upserted %d articles", len(rows)),
		Meta:     map[string]any{"upsertedCount": len(rows)},
	})
}

// toArticleRow normalizes one feed item. It returns nil when the item has no
// URL (hard precondition, not an error) and reports whether a full-text
// extraction attempt was spent on it.
func (i *Ingester) toArticleRow(ctx context.Context, src domain.Source, item domain.FeedItem, allowFullText bool) (*domain.Article, bool) {
	url := strings.TrimSpace(item.Link)
	if url == "" {
		return nil, false
	}

	raw := firstNonEmpty(item.Content, item.EncodedContent, item.Snippet, item.Summary)
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = defaultTitle
	}
	cleaned := textutil.Clean(raw)

	attempted := false
	if allowFullText && i.cfg.Enabled && textLen(cleaned) < i.cfg.MinSnippetChars {
		attempted = true
		if i.cfg.Debug {
			i.logger.Debug("attempting full-text extraction", "url", url)
		}

		extracted, err := i.extractor.Extract(ctx, url)
		switch {
		case err != nil:
			// Extraction failures never abort the item.
			i.logger.Warn("full-text extraction failed", "title", title, "error", err)
		case extracted.Length >= i.cfg.MinExtractedChars:
			raw = &extracted.TextContent
			cleaned = textutil.Clean(raw)
			if len(extracted.Title) > 5 {
				title = extracted.Title
			}
			i.logger.Info("full text extracted", "title", title, "chars", extracted.Length)
		default:
			i.logger.Info("full-text extraction too short", "title", title, "chars", extracted.Length)
		}
	}

	row := domain.Article{
		SourceID:       src.ID,
		Title:          title,
		URL:            url,
		PublishedAt:    item.PublishedAt,
		RawContent:     raw,
		CleanedContent: cleaned,
	}
	if author := strings.TrimSpace(item.Author); author != "" {
		row.Author = &author
	}
	return &row, attempted
}

func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}

func textLen(s *string) int {
	if s == nil {
		return 0
	}
	return len(*s)
}
