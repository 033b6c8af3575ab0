package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"AVInsights/internal/config"
	"AVInsights/internal/domain"
	"AVInsights/internal/ports"
	"AVInsights/internal/relevance"
)

const truncationMarker = "\n\n[TRUNCATED]"

// WorkerDeps wires the classification worker's adapters.
type WorkerDeps struct {
	Store    ports.ArticleStore
	Analyzer ports.Analyzer
	Matcher  *relevance.Matcher
	Logger   *slog.Logger
}

// Worker claims a bounded batch of pending articles and resolves each to
// done, skipped or error.
type Worker struct {
	store    ports.ArticleStore
	analyzer ports.Analyzer
	matcher  *relevance.Matcher
	cfg      config.AIConfig
	logger   *slog.Logger
}

// NewWorker constructs the classification use case.
func NewWorker(deps WorkerDeps, cfg config.AIConfig) *Worker {
	return &Worker{
		store:    deps.Store,
		analyzer: deps.Analyzer,
		matcher:  deps.Matcher,
		cfg:      cfg,
		logger:   deps.Logger,
	}
}

// BatchSummary reports what one worker run did.
type BatchSummary struct {
	Claimed int
	Done    int
	Skipped int
	Errored int
}

// RunBatch claims up to the configured batch size and processes the claimed
// articles sequentially in claim order. A failure on one article marks that
// row as error and does not abort the batch; only a claim failure escapes.
func (w *Worker) RunBatch(ctx context.Context) (BatchSummary, error) {
	claimed, err := w.store.ClaimPending(ctx, w.cfg.BatchSize)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("claim pending: %w", err)
	}

	summary := BatchSummary{Claimed: len(claimed)}
	for _, article := range claimed {
		res, err := w.analyze(ctx, article)
		if err == nil {
			err = w.store.SaveResolution(ctx, article.ID, res)
		}
		if err != nil {
			w.logger.Error("article failed", "id", article.ID, "title", article.Title, "error", err)
			summary.Errored++
			if markErr := w.store.MarkError(ctx, article.ID, err.Error()); markErr != nil {
				w.logger.Error("failed to mark error", "id", article.ID, "error", markErr)
			}
			continue
		}

		switch res.Status {
		case domain.StatusDone:
			summary.Done++
		case domain.StatusSkipped:
			summary.Skipped++
		}
		w.logger.Info("article resolved", "id", article.ID, "status", res.Status, "title", article.Title)
	}

	return summary, nil
}

// analyze runs the cheap gate first; the model is only called when the text
// plausibly concerns autonomous vehicles.
func (w *Worker) analyze(ctx context.Context, article domain.ClaimedArticle) (domain.Resolution, error) {
	text := trimToMaxChars(article.CleanedContent, w.cfg.MaxInputChars)

	if !w.matcher.LooksRelevant(article.Title + "\n" + text) {
		return domain.HeuristicSkip("Heuristic: not AV-relevant"), nil
	}

	analysis, err := w.analyzer.Analyze(ctx, ports.AnalysisRequest{
		Title:   article.Title,
		URL:     article.URL,
		Content: text,
	})
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("analyze article %d: %w", article.ID, err)
	}

	return domain.Resolve(analysis, w.cfg.RelevanceThreshold), nil
}

func trimToMaxChars(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + truncationMarker
}
