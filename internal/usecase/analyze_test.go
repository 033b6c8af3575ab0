package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"AVInsights/internal/config"
	"AVInsights/internal/domain"
	"AVInsights/internal/ports"
	"AVInsights/internal/relevance"
)

type fakeStore struct {
	claimed  []domain.ClaimedArticle
	claimErr error
	saved    map[int64]domain.Resolution
	saveErr  map[int64]error
	errored  map[int64]string
}

func newFakeStore(claimed ...domain.ClaimedArticle) *fakeStore {
	return &fakeStore{
		claimed: claimed,
		saved:   map[int64]domain.Resolution{},
		errored: map[int64]string{},
	}
}

func (f *fakeStore) UpsertArticles(context.Context, []domain.Article) error { return nil }

func (f *fakeStore) ClaimPending(context.Context, int) ([]domain.ClaimedArticle, error) {
	return f.claimed, f.claimErr
}

func (f *fakeStore) SaveResolution(_ context.Context, id int64, res domain.Resolution) error {
	if err, ok := f.saveErr[id]; ok {
		return err
	}
	f.saved[id] = res
	return nil
}

func (f *fakeStore) MarkError(_ context.Context, id int64, message string) error {
	f.errored[id] = message
	return nil
}

type fakeAnalyzer struct {
	analysis domain.Analysis
	err      error
	calls    int
	lastReq  ports.AnalysisRequest
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req ports.AnalysisRequest) (domain.Analysis, error) {
	f.calls++
	f.lastReq = req
	return f.analysis, f.err
}

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		MaxInputChars:      8000,
		RelevanceThreshold: 0.55,
		BatchSize:          3,
	}
}

func newTestWorker(store *fakeStore, analyzer *fakeAnalyzer, cfg config.AIConfig) *Worker {
	return NewWorker(WorkerDeps{
		Store:    store,
		Analyzer: analyzer,
		Matcher:  relevance.NewMatcher(relevance.DefaultTerms),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, cfg)
}

func relevantArticle(id int64) domain.ClaimedArticle {
	return domain.ClaimedArticle{
		ID:             id,
		Title:          "Waymo expands robotaxi service",
		URL:            "http://a/1",
		CleanedContent: "The driverless fleet now covers three more districts.",
	}
}

func TestHeuristicSkipAvoidsModelCall(t *testing.T) {
	t.Parallel()

	store := newFakeStore(domain.ClaimedArticle{
		ID:             1,
		Title:          "Quarterly grain harvest update",
		CleanedContent: "Wheat and corn yields were up across the region this season.",
	})
	analyzer := &fakeAnalyzer{}

	summary, err := newTestWorker(store, analyzer, testAIConfig()).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if analyzer.calls != 0 {
		t.Fatalf("heuristic rejection must not call the model, got %d calls", analyzer.calls)
	}

	res, ok := store.saved[1]
	if !ok {
		t.Fatal("heuristic skip must still be saved")
	}
	if res.Status != domain.StatusSkipped || !strings.Contains(res.SkippedReason, "Heuristic") {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestModelRelevantIsDone(t *testing.T) {
	t.Parallel()

	store := newFakeStore(relevantArticle(1))
	analyzer := &fakeAnalyzer{analysis: domain.Analysis{AVRelevance: true, RelevanceScore: 0.9}}

	summary, err := newTestWorker(store, analyzer, testAIConfig()).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if store.saved[1].Status != domain.StatusDone {
		t.Fatalf("expected done, got %+v", store.saved[1])
	}
	if summary.Done != 1 || summary.Claimed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestModelBelowThresholdIsSkipped(t *testing.T) {
	t.Parallel()

	store := newFakeStore(relevantArticle(1))
	analyzer := &fakeAnalyzer{analysis: domain.Analysis{AVRelevance: true, RelevanceScore: 0.3}}

	if _, err := newTestWorker(store, analyzer, testAIConfig()).RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	res := store.saved[1]
	if res.Status != domain.StatusSkipped || !strings.Contains(res.SkippedReason, "relevance_score <") {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestModelNotRelevantIsSkipped(t *testing.T) {
	t.Parallel()

	store := newFakeStore(relevantArticle(1))
	analyzer := &fakeAnalyzer{analysis: domain.Analysis{AVRelevance: false, RelevanceScore: 0.8}}

	if _, err := newTestWorker(store, analyzer, testAIConfig()).RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	res := store.saved[1]
	if res.Status != domain.StatusSkipped || !strings.Contains(res.SkippedReason, "not AV relevant") {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestAnalyzerErrorMarksArticleAndContinues(t *testing.T) {
	t.Parallel()

	store := newFakeStore(relevantArticle(1), domain.ClaimedArticle{
		ID:             2,
		Title:          "Harvest report",
		CleanedContent: "Nothing about vehicles at all in this one.",
	})
	analyzer := &fakeAnalyzer{err: errors.New("model exploded")}

	summary, err := newTestWorker(store, analyzer, testAIConfig()).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("one bad article must not abort the batch: %v", err)
	}

	if msg, ok := store.errored[1]; !ok || !strings.Contains(msg, "model exploded") {
		t.Fatalf("article 1 must be marked errored, got %v", store.errored)
	}
	if _, ok := store.saved[2]; !ok {
		t.Fatal("article 2 must still be processed")
	}
	if summary.Errored != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSaveFailureMarksArticle(t *testing.T) {
	t.Parallel()

	store := newFakeStore(relevantArticle(1))
	store.saveErr = map[int64]error{1: errors.New("write refused")}
	analyzer := &fakeAnalyzer{analysis: domain.Analysis{AVRelevance: true, RelevanceScore: 0.9}}

	summary, err := newTestWorker(store, analyzer, testAIConfig()).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if _, ok := store.errored[1]; !ok {
		t.Fatal("save failure must mark the article errored")
	}
	if summary.Errored != 1 || summary.Done != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestClaimFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.claimErr = errors.New("db down")

	if _, err := newTestWorker(store, &fakeAnalyzer{}, testAIConfig()).RunBatch(context.Background()); err == nil {
		t.Fatal("claim failure must be a run-level error")
	}
}

func TestEmptyClaimIsNotAnError(t *testing.T) {
	t.Parallel()

	summary, err := newTestWorker(newFakeStore(), &fakeAnalyzer{}, testAIConfig()).RunBatch(context.Background())
	if err != nil {
		t.Fatalf("empty claim must not error: %v", err)
	}
	if summary.Claimed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestContentTruncation(t *testing.T) {
	t.Parallel()

	cfg := testAIConfig()
	cfg.MaxInputChars = 50

	long := strings.Repeat("waymo robotaxi coverage keeps growing. ", 20)
	store := newFakeStore(domain.ClaimedArticle{ID: 1, Title: "Robotaxi news", CleanedContent: long})
	analyzer := &fakeAnalyzer{analysis: domain.Analysis{AVRelevance: true, RelevanceScore: 0.9}}

	if _, err := newTestWorker(store, analyzer, cfg).RunBatch(context.Background()); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if !strings.HasSuffix(analyzer.lastReq.Content, truncationMarker) {
		t.Fatal("truncated content must carry the marker")
	}
	if len(analyzer.lastReq.Content) != 50+len(truncationMarker) {
		t.Fatalf("unexpected truncated length %d", len(analyzer.lastReq.Content))
	}
}

func TestShortContentNotTruncated(t *testing.T) {
	t.Parallel()

	if got := trimToMaxChars("short", 8000); got != "short" {
		t.Fatalf("unexpected result %q", got)
	}
	if got := trimToMaxChars("anything", 0); got != "anything" {
		t.Fatalf("zero max must disable truncation, got %q", got)
	}
}
