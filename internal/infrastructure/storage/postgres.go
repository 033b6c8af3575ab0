package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"AVInsights/internal/domain"
	"AVInsights/internal/ports"
)

const maxErrorChars = 500

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists articles, sources and ingestion audit logs.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ ports.SourceStore  = (*PostgresStore)(nil)
	_ ports.ArticleStore = (*PostgresStore)(nil)
	_ ports.IngestionLog = (*PostgresStore)(nil)
)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger, now: time.Now}
}

// ListActiveSources returns the active sources of the given type.
func (s *PostgresStore) ListActiveSources(ctx context.Context, sourceType string) ([]domain.Source, error) {
	query, args, err := psql.
		Select("id", "name", "url", "type", "active").
		From("sources").
		Where(sq.Eq{"active": true, "type": sourceType}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Type, &src.Active); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return sources, nil
}

// UpsertArticles bulk-inserts rows keyed on URL. The DO UPDATE list holds
// only ingestion-owned columns so re-ingesting a classified URL can never
// reset its AI state.
func (s *PostgresStore) UpsertArticles(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	builder := psql.
		Insert("articles").
		Columns("source_id", "title", "url", "published_at", "author", "raw_content", "cleaned_content")
	for _, a := range articles {
		builder = builder.Values(a.SourceID, a.Title, a.URL, a.PublishedAt, a.Author, a.RawContent, a.CleanedContent)
	}
	builder = builder.Suffix(`ON CONFLICT (url) DO UPDATE
		SET source_id = EXCLUDED.source_id,
		    title = EXCLUDED.title,
		    published_at = EXCLUDED.published_at,
		    author = EXCLUDED.author,
		    raw_content = EXCLUDED.raw_content,
		    cleaned_content = EXCLUDED.cleaned_content,
		    updated_at = NOW()`)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert articles: %w", err)
	}
	return nil
}

// ClaimPending selects up to limit pending rows with usable content, newest
// publish date first, and atomically flips them to processing. The update
// re-checks ai_status = pending so a concurrent worker can never claim the
// same row; rows another worker grabbed in between are simply not returned.
func (s *PostgresStore) ClaimPending(ctx context.Context, limit int) ([]domain.ClaimedArticle, error) {
	selectQ, selectArgs, err := psql.
		Select("id").
		From("articles").
		Where(sq.Eq{"ai_status": string(domain.StatusPending)}).
		Where(sq.NotEq{"cleaned_content": nil}).
		OrderBy("published_at DESC NULLS LAST").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidate query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, selectQ, selectArgs...)
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("candidate iteration: %w", err)
	}
	_ = rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}

	claimQ, claimArgs, err := psql.
		Update("articles").
		Set("ai_status", string(domain.StatusProcessing)).
		Set("ai_started_at", s.now().UTC()).
		Set("ai_error", nil).
		Where(sq.Eq{"id": ids}).
		Where(sq.Eq{"ai_status": string(domain.StatusPending)}).
		Suffix("RETURNING id, title, url, cleaned_content").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claim query: %w", err)
	}

	claimedRows, err := s.db.QueryContext(ctx, claimQ, claimArgs...)
	if err != nil {
		return nil, fmt.Errorf("claim pending: %w", err)
	}
	defer claimedRows.Close()

	var claimed []domain.ClaimedArticle
	for claimedRows.Next() {
		var c domain.ClaimedArticle
		if err := claimedRows.Scan(&c.ID, &c.Title, &c.URL, &c.CleanedContent); err != nil {
			return nil, fmt.Errorf("scan claimed row: %w", err)
		}
		claimed = append(claimed, c)
	}
	if err := claimedRows.Err(); err != nil {
		return nil, fmt.Errorf("claimed iteration: %w", err)
	}

	return claimed, nil
}

// SaveResolution persists a done/skipped outcome, model outputs included
// either way for audit.
func (s *PostgresStore) SaveResolution(ctx context.Context, id int64, res domain.Resolution) error {
	a := res.Analysis
	setMap := map[string]any{
		"ai_status":               string(res.Status),
		"ai_processed_at":         s.now().UTC(),
		"ai_av_relevance":         a.AVRelevance,
		"ai_relevance_score":      a.RelevanceScore,
		"ai_summary":              pq.Array(a.Summary),
		"ai_companies":            pq.Array(a.Companies),
		"ai_category":             a.Category,
		"ai_sentiment":            a.Sentiment,
		"ai_impact":               a.Impact,
		"ai_regulatory_relevance": a.RegulatoryRelevance,
		"ai_themes":               pq.Array(a.Themes),
	}
	if res.Status == domain.StatusSkipped {
		setMap["ai_skipped_reason"] = res.SkippedReason
	}

	query, args, err := psql.
		Update("articles").
		SetMap(setMap).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save resolution for article %d: %w", id, err)
	}
	return nil
}

// MarkError records a row-level failure with a truncated diagnostic.
func (s *PostgresStore) MarkError(ctx context.Context, id int64, message string) error {
	if len(message) > maxErrorChars {
		message = message[:maxErrorChars]
	}

	query, args, err := psql.
		Update("articles").
		Set("ai_status", string(domain.StatusError)).
		Set("ai_error", message).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build error query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark error for article %d: %w", id, err)
	}
	return nil
}

// Append writes one ingestion audit record. Failures are logged and
// swallowed; the audit trail must never abort ingestion.
func (s *PostgresStore) Append(ctx context.Context, entry domain.IngestionLogEntry) {
	var meta any
	if entry.Meta != nil {
		raw, err := json.Marshal(entry.Meta)
		if err != nil {
			s.logger.Warn("ingestion log meta not serializable", "error", err)
		} else {
			meta = raw
		}
	}

	query, args, err := psql.
		Insert("ingestion_logs").
		Columns("source_id", "status", "message", "meta").
		Values(entry.SourceID, entry.Status, entry.Message, meta).
		ToSql()
	if err != nil {
		s.logger.Warn("failed to build ingestion log insert", "error", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Warn("failed to write ingestion log", "source_id", entry.SourceID, "error", err)
	}
}
