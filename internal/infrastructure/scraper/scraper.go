// Package scraper fetches recipe pages and reduces them to the title, visible
// text and hero image the extractor needs.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (compatible; RecipeSimplifier/1.0)"
	DefaultMaxTextChars = 8000
	defaultMaxBody      = 5 << 20
)

// Scraper implements outbound.PageScraper over plain HTTP.
type Scraper struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	userAgent string
	maxBody   int64
	maxText   int
	logger    *zap.Logger
}

// New creates a scraper from configuration. A nil client gets one with the
// configured timeout.
func New(cfg config.ScraperConfig, client *http.Client, logger *zap.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	s := &Scraper{
		client:    client,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		maxText:   cfg.MaxTextChars,
		logger:    logger.Named("scraper"),
	}
	if s.userAgent == "" {
		s.userAgent = DefaultUserAgent
	}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBody
	}
	if s.maxText <= 0 {
		s.maxText = DefaultMaxTextChars
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "page-fetch",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a 404 from one site says nothing about the network
		IsSuccessful: func(err error) bool {
			var status *statusError
			return err == nil || errors.As(err, &status)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.code)
}

// Scrape downloads rawURL and extracts the page content.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*outbound.ScrapedPage, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		return nil, apperrors.NewBadRequestError("Invalid URL format")
	}

	start := time.Now()
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx, target)
	})
	if err != nil {
		s.logger.Warn("page fetch failed",
			zap.String("url", rawURL),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewExternalServiceError("page fetcher", err)
		}
		return nil, apperrors.NewParseFailedError(err)
	}

	doc := result.(*goquery.Document)
	page := &outbound.ScrapedPage{
		URL:   rawURL,
		Title: pageTitle(doc),
		Image: SelectImage(doc, target),
	}
	doc.Find("script, style, noscript").Remove()
	page.Text = truncateRunes(collapseWhitespace(doc.Find("body").Text()), s.maxText)

	s.logger.Debug("page scraped",
		zap.String("url", rawURL),
		zap.Int("text_chars", len([]rune(page.Text))),
		zap.Bool("has_image", page.Image != ""),
		zap.Duration("elapsed", time.Since(start)))
	return page, nil
}

func (s *Scraper) fetch(ctx context.Context, target *url.URL) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}
	return goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.maxBody))
}

func pageTitle(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return collapseWhitespace(h1)
	}
	return collapseWhitespace(doc.Find("title").First().Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
