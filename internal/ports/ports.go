package ports

import (
	"context"

	"AVInsights/internal/domain"
)

// SourceStore reads the configured feed list. The pipeline never writes it.
type SourceStore interface {
	ListActiveSources(ctx context.Context, sourceType string) ([]domain.Source, error)
}

// ArticleStore is the shared articles table. The ingester only touches
// content columns, the classifier only ai_* columns.
type ArticleStore interface {
	// UpsertArticles inserts or updates rows keyed on URL. Ingestion-owned
	// columns only; a re-ingested URL keeps whatever AI state it reached.
	UpsertArticles(ctx context.Context, rows []domain.Article) error

	// ClaimPending atomically moves up to limit pending rows with usable
	// content into processing and returns them, newest publish date first.
	// The update re-checks pending so two concurrent workers never claim
	// the same row. An empty claim is not an error.
	ClaimPending(ctx context.Context, limit int) ([]domain.ClaimedArticle, error)

	// SaveResolution persists a done/skipped outcome for one claimed row.
	SaveResolution(ctx context.Context, id int64, res domain.Resolution) error

	// MarkError records a row-level failure; the message is truncated by
	// the adapter.
	MarkError(ctx context.Context, id int64, message string) error
}

// IngestionLog appends audit records for ingestion phase transitions.
// Implementations must swallow their own failures.
type IngestionLog interface {
	Append(ctx context.Context, entry domain.IngestionLogEntry)
}

// FeedFetcher retrieves and parses one feed URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Feed, error)
}

// FetcherResolver maps a source type to its feed fetcher.
type FetcherResolver interface {
	Resolve(sourceType string) (FeedFetcher, error)
}

// Extracted is the readability result for one page. Length is zero when
// extraction failed or produced too little text; callers check Length, not
// an error.
type Extracted struct {
	Title       string
	TextContent string
	Excerpt     string
	Byline      string
	SiteName    string
	Length      int
}

// Extractor fetches a URL and pulls out its primary readable content.
type Extractor interface {
	Extract(ctx context.Context, url string) (Extracted, error)
}

// AnalysisRequest carries one article into the classification model.
type AnalysisRequest struct {
	Title   string
	URL     string
	Content string
}

// Analyzer runs the structured-output classification call.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (domain.Analysis, error)
}
