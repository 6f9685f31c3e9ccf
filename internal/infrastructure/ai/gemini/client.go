// Package gemini extracts structured recipes from scraped pages with Google's
// Gemini models.
package gemini

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
)

const DefaultModel = "gemini-1.5-flash"

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// genaiGenerator calls the Gemini API and asks for a JSON reply.
type genaiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func (g *genaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Metrics records model call latency by outcome.
type Metrics interface {
	RecordGeneration(outcome string, duration time.Duration)
}

// Extractor implements outbound.RecipeExtractor.
type Extractor struct {
	generator Generator
	breaker   *gobreaker.CircuitBreaker
	timeout   time.Duration
	metrics   Metrics
	logger    *zap.Logger
}

// NewExtractor connects to Gemini. Without an API key it still returns an
// extractor so the service can boot, but every extraction fails.
func NewExtractor(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Extractor, error) {
	if cfg.GeminiKey == "" {
		logger.Warn("Gemini API key not configured, recipe parsing is disabled")
		return NewExtractorWithGenerator(nil, cfg.Timeout, logger), nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if cfg.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(cfg.MaxTokens)
	}

	logger.Info("Gemini extractor initialized", zap.String("model", model))
	return NewExtractorWithGenerator(&genaiGenerator{
		client: client,
		model:  model,
		config: genConfig,
	}, cfg.Timeout, logger), nil
}

// NewExtractorWithGenerator builds an extractor around any generator.
func NewExtractorWithGenerator(gen Generator, timeout time.Duration, logger *zap.Logger) *Extractor {
	e := &Extractor{
		generator: gen,
		timeout:   timeout,
		logger:    logger.Named("gemini"),
	}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "gemini",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return e
}

// WithMetrics attaches a latency recorder.
func (e *Extractor) WithMetrics(m Metrics) *Extractor {
	e.metrics = m
	return e
}

func (e *Extractor) record(outcome string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordGeneration(outcome, time.Since(start))
	}
}

// Extract asks the model to structure the page and parses its reply.
func (e *Extractor) Extract(ctx context.Context, req outbound.ExtractionRequest) (*recipe.ParsedRecipe, error) {
	if e.generator == nil {
		return nil, apperrors.NewParseFailedError(ErrNotConfigured)
	}
	if req.Page == nil {
		return nil, apperrors.NewParseFailedError(errors.New("no page content"))
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx, span := otel.Tracer("gemini").Start(ctx, "gemini.Extract",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("recipe.url", req.Page.URL),
			attribute.String("recipe.locale", string(req.Locale)),
		))
	defer span.End()

	start := time.Now()
	prompt := BuildPrompt(req)
	reply, err := e.breaker.Execute(func() (interface{}, error) {
		return e.generator.Generate(ctx, prompt)
	})
	if err != nil {
		e.record("error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		e.logger.Error("generation failed",
			zap.String("url", req.Page.URL),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewExternalServiceError("Gemini", err)
		}
		return nil, apperrors.NewParseFailedError(errors.New("Failed to parse recipe with Gemini")).WithCause(err)
	}

	parsed, err := ParseResponse(reply.(string), req.Page.Image)
	if err != nil {
		e.record("unusable_reply", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unusable reply")
		e.logger.Warn("unusable model reply",
			zap.String("url", req.Page.URL),
			zap.Error(err))
		if errors.Is(err, ErrEmptyResponse) {
			return nil, apperrors.NewParseFailedError(err)
		}
		return nil, apperrors.NewParseFailedError(errors.New("Failed to parse recipe with Gemini")).WithCause(err)
	}

	e.record("success", start)
	e.logger.Info("recipe extracted",
		zap.String("url", req.Page.URL),
		zap.String("locale", string(req.Locale)),
		zap.Int("ingredients", len(parsed.Ingredients)),
		zap.Int("steps", len(parsed.Steps)),
		zap.Duration("elapsed", time.Since(start)))
	return parsed, nil
}
