// Package fulltext fetches article pages and extracts their primary readable
// content. It is pure I/O plus transform; nothing persists between calls.
package fulltext

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"AVInsights/internal/config"
	"AVInsights/internal/ports"
)

// Extraction below this many characters counts as a failed extraction.
const minReadableChars = 200

const maxResolveBody = 512 * 1024

// Extractor resolves aggregator-wrapper URLs and runs readability
// extraction with a bounded fetch.
type Extractor struct {
	client  *http.Client
	resolve *http.Client
	cfg     config.FulltextConfig
	logger  *slog.Logger
}

var _ ports.Extractor = (*Extractor)(nil)

// New wires an extractor; a nil client gets a default with the configured
// timeout.
func New(client *http.Client, cfg config.FulltextConfig, logger *slog.Logger) *Extractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Extractor{
		client: client,
		resolve: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Extract fetches the page behind url and returns its readable content.
// Length is zero when extraction fails or yields too little text; title and
// excerpt may still be populated in that case. Callers check Length, never
// rely on an error for short content.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (ports.Extracted, error) {
	resolved := e.resolveWrapperURL(ctx, rawURL)
	if resolved != rawURL {
		e.debug("wrapper url resolved", "from", rawURL, "to", resolved)
	}

	parsed, err := url.Parse(resolved)
	if err != nil {
		return ports.Extracted{}, fmt.Errorf("invalid url %s: %w", resolved, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return ports.Extracted{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return ports.Extracted{}, fmt.Errorf("fetch %s: %w", resolved, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ports.Extracted{}, fmt.Errorf("fetch %s: unexpected status %s", resolved, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		e.debug("readability parse failed", "url", resolved, "error", err)
		return ports.Extracted{}, nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minReadableChars {
		e.debug("extraction too short", "url", resolved, "length", len(text))
		return ports.Extracted{
			Title:    article.Title,
			Excerpt:  article.Excerpt,
			Byline:   article.Byline,
			SiteName: article.SiteName,
		}, nil
	}

	return ports.Extracted{
		Title:       article.Title,
		TextContent: text,
		Excerpt:     article.Excerpt,
		Byline:      article.Byline,
		SiteName:    article.SiteName,
		Length:      len(text),
	}, nil
}

// resolveWrapperURL unwraps aggregator redirect URLs (e.g. Google News item
// links). It never fails: any problem degrades to the original URL.
func (e *Extractor) resolveWrapperURL(ctx context.Context, rawURL string) string {
	if !e.isWrapper(rawURL) {
		return rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.resolve.Do(req)
	if err != nil {
		e.debug("wrapper resolution fetch failed", "url", rawURL, "error", err)
		return rawURL
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" && !e.isWrapper(loc) {
			return loc
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxResolveBody))
	if err != nil {
		e.debug("wrapper resolution parse failed", "url", rawURL, "error", err)
		return rawURL
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		if href != "" && !e.isWrapper(href) {
			return href
		}
	}

	var found string
	doc.Find(`a[href]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "http") && !e.isWrapper(href) {
			found = href
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	e.debug("wrapper resolution failed, using original url", "url", rawURL)
	return rawURL
}

// isWrapper reports whether the URL still points at an aggregator domain.
// The parent domain counts too, so a redirect from news.google.com to
// another google.com page is not accepted as a resolution.
func (e *Extractor) isWrapper(rawURL string) bool {
	for _, domain := range e.cfg.WrapperDomains {
		if strings.Contains(rawURL, domain) {
			return true
		}
		if parent := parentDomain(domain); parent != "" && strings.Contains(rawURL, parent) {
			return true
		}
	}
	return false
}

func parentDomain(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.cfg.Debug && e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
