package domain

import "time"

// AIStatus tracks an article through the classification pipeline.
// Once a row leaves pending the status is monotonic: processing moves to
// done, skipped or error and nothing reverts automatically.
type AIStatus string

const (
	StatusPending    AIStatus = "pending"
	StatusProcessing AIStatus = "processing"
	StatusDone       AIStatus = "done"
	StatusSkipped    AIStatus = "skipped"
	StatusError      AIStatus = "error"
)

// Article is the central entity shared by the ingester and the classifier.
// The URL is the natural key; upserts resolve conflicts on it.
type Article struct {
	ID             int64
	SourceID       int64
	Title          string
	URL            string
	PublishedAt    *time.Time
	Author         *string
	RawContent     *string
	CleanedContent *string

	AIStatus        AIStatus
	AIStartedAt     *time.Time
	AIProcessedAt   *time.Time
	AIError         *string
	AISkippedReason *string
}

// ClaimedArticle is the slice of an article row a worker needs to analyze it.
type ClaimedArticle struct {
	ID             int64
	Title          string
	URL            string
	CleanedContent string
}

// Source is a configured feed. Read-only to the pipeline; the active flag
// and type gate whether the ingester touches it.
type Source struct {
	ID     int64
	Name   string
	URL    string
	Type   string
	Active bool
}

// Ingestion audit log statuses, one per phase transition.
const (
	IngestStarted    = "started"
	IngestFetched    = "fetched"
	IngestSuccess    = "success"
	IngestDBError    = "db_error"
	IngestFetchError = "fetch_error"
)

// IngestionLogEntry is an append-only audit record. Writing one must never
// abort ingestion; adapters swallow their own failures.
type IngestionLogEntry struct {
	SourceID int64
	Status   string
	Message  string
	Meta     map[string]any
}

// FeedItem is a feed entry after parsing, before normalization. Content
// variants are kept separate so the ingester can apply its fallback order.
type FeedItem struct {
	Title          string
	Link           string
	Content        string
	EncodedContent string
	Snippet        string
	Summary        string
	Author         string
	PublishedAt    *time.Time
}

// Feed is the parsed result of one source fetch.
type Feed struct {
	Title string
	Items []FeedItem
}
