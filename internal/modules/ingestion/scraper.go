package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/pitwall/internal/platform/logger"
)

const (
	defaultUserAgent   = "pitwall-scraper/1.0 (+https://github.com/yungbote/pitwall)"
	defaultMaxBytes    = 8 << 20
	defaultConcurrency = 4
)

type ScraperConfig struct {
	Concurrency int
	MaxBytes    int64
	Timeout     time.Duration
	UserAgent   string
}

// PageResult is the outcome for one allowlist entry.
type PageResult struct {
	URL  string
	Text string
	Err  error
}

type Scraper struct {
	log      *logger.Logger
	http     *http.Client
	limit    int
	maxBytes int64
	ua       string
}

func NewScraper(log *logger.Logger, cfg ScraperConfig) *Scraper {
	s := &Scraper{
		log:      log.With("service", "Scraper"),
		limit:    cfg.Concurrency,
		maxBytes: cfg.MaxBytes,
		ua:       strings.TrimSpace(cfg.UserAgent),
	}
	if s.limit <= 0 {
		s.limit = defaultConcurrency
	}
	if s.maxBytes <= 0 {
		s.maxBytes = defaultMaxBytes
	}
	if s.ua == "" {
		s.ua = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s.http = &http.Client{Timeout: timeout}
	return s
}

// Scrape fetches every url and returns the corpus: each page's body text with
// whitespace collapsed, joined by single spaces in input order. Pages that
// fail or have no text are logged and left out.
func (s *Scraper) Scrape(ctx context.Context, urls []string) (string, []PageResult) {
	results := make([]PageResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, u := range urls {
		g.Go(func() error {
			text, err := s.fetchText(gctx, u)
			results[i] = PageResult{URL: u, Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	parts := make([]string, 0, len(results))
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.log.Warn("Page skipped", "url", r.URL, "error", r.Err)
		case r.Text == "":
			s.log.Warn("No content found", "url", r.URL)
		default:
			parts = append(parts, r.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), results
}

func (s *Scraper) fetchText(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}
	return ExtractBodyText(io.LimitReader(resp.Body, s.maxBytes))
}

// ExtractBodyText returns the visible text of the document body with every
// whitespace run collapsed to one space.
func ExtractBodyText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	body := doc.Find("body")
	body.Find("script, style, noscript, template").Remove()
	return CollapseWhitespace(body.Text()), nil
}

func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
