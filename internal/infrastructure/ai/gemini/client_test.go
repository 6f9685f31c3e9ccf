package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/recipe"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/memory"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type countingExtractor struct {
	calls  int
	result *recipe.ParsedRecipe
	err    error
}

func (c *countingExtractor) Extract(ctx context.Context, req outbound.ExtractionRequest) (*recipe.ParsedRecipe, error) {
	c.calls++
	return c.result, c.err
}

type ExtractorTestSuite struct {
	suite.Suite
	ctx       context.Context
	generator *mockGenerator
	extractor *Extractor
	request   outbound.ExtractionRequest
}

func (s *ExtractorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.generator = new(mockGenerator)
	s.extractor = NewExtractorWithGenerator(s.generator, time.Second, zap.NewNop())
	s.request = outbound.ExtractionRequest{
		Page: &outbound.ScrapedPage{
			URL:   "https://example.com/goulash",
			Title: "Goulash",
			Text:  "Brown the onions. Add beef and paprika.",
			Image: "https://example.com/goulash.jpg",
		},
		Locale: recipe.LocaleCzech,
	}
}

func (s *ExtractorTestSuite) TestBuildPrompt() {
	s.Run("WithInstructions_ShouldAppendCustomSection", func() {
		s.request.Customizations = recipe.NewCustomizations("make it vegan", "double it")

		prompt := BuildPrompt(s.request)

		s.Contains(prompt, "in Czech language")
		s.Contains(prompt, "URL: https://example.com/goulash\n")
		s.Contains(prompt, "Image: https://example.com/goulash.jpg\n")
		s.Contains(prompt, "\n\nCUSTOM INSTRUCTIONS: make it vegan; double it\nPlease follow these instructions when processing the recipe.")
		s.True(strings.HasSuffix(prompt, "Only return valid JSON, no other text."))
	})

	s.Run("WithoutImageOrInstructions_ShouldOmitLines", func() {
		s.request.Customizations = nil
		s.request.Page.Image = ""
		s.request.Locale = recipe.Locale("de")

		prompt := BuildPrompt(s.request)

		s.NotContains(prompt, "Image:")
		s.NotContains(prompt, "CUSTOM INSTRUCTIONS")
		s.Contains(prompt, "in English language")
	})
}

func (s *ExtractorTestSuite) TestExtract() {
	s.Run("ValidReply_ShouldReturnRecipe", func() {
		// Arrange
		s.generator.On("Generate", mock.Anything, mock.AnythingOfType("string")).
			Return(`{"title":"Guláš","ingredients":[{"name":"hovězí","amount":"1","unit":"kg"}],"steps":[{"step":1,"instruction":"Vařte."}]}`, nil).Once()

		// Act
		parsed, err := s.extractor.Extract(s.ctx, s.request)

		// Assert
		s.Require().NoError(err)
		s.Equal("Guláš", parsed.Title)
		s.Len(parsed.Ingredients, 1)
		s.Require().NotNil(parsed.Image)
		s.Equal("https://example.com/goulash.jpg", *parsed.Image)
		s.generator.AssertExpectations(s.T())
	})

	s.Run("EmptyReply_ShouldFailWithNoResponse", func() {
		s.generator.On("Generate", mock.Anything, mock.Anything).Return("", nil).Once()

		_, err := s.extractor.Extract(s.ctx, s.request)

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal(apperrors.CodeParseFailed, appErr.Code)
		s.Equal("No response from Gemini", appErr.Details)
	})

	s.Run("GeneratorError_ShouldFailParse", func() {
		s.generator.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()

		_, err := s.extractor.Extract(s.ctx, s.request)

		s.True(apperrors.Is(err, apperrors.CodeParseFailed))
	})

	s.Run("NoAPIKey_ShouldReportNotConfigured", func() {
		extractor := NewExtractorWithGenerator(nil, 0, zap.NewNop())

		_, err := extractor.Extract(s.ctx, s.request)

		appErr, ok := apperrors.As(err)
		s.Require().True(ok)
		s.Equal("Gemini API key not configured", appErr.Details)
	})
}

func (s *ExtractorTestSuite) TestCachingExtractor() {
	s.Run("SecondCall_ShouldHitCache", func() {
		// Arrange
		next := &countingExtractor{result: &recipe.ParsedRecipe{Title: "Goulash", Ingredients: []recipe.Ingredient{}, Steps: []recipe.Step{}}}
		cache := memory.NewCacheRepository(time.Minute, time.Minute)
		extractor := NewCachingExtractor(next, cache, time.Minute, zap.NewNop())

		// Act
		first, err1 := extractor.Extract(s.ctx, s.request)
		second, err2 := extractor.Extract(s.ctx, s.request)

		// Assert
		s.Require().NoError(err1)
		s.Require().NoError(err2)
		s.Equal(1, next.calls)
		s.Equal(first.Title, second.Title)
	})

	s.Run("DifferentInstructions_ShouldMiss", func() {
		next := &countingExtractor{result: &recipe.ParsedRecipe{Title: "Goulash"}}
		extractor := NewCachingExtractor(next, memory.NewCacheRepository(time.Minute, time.Minute), time.Minute, zap.NewNop())

		_, _ = extractor.Extract(s.ctx, s.request)
		s.request.Customizations = recipe.NewCustomizations("no onions")
		_, _ = extractor.Extract(s.ctx, s.request)

		s.Equal(2, next.calls)
	})

	s.Run("Failure_ShouldNotBeCached", func() {
		next := &countingExtractor{err: apperrors.NewParseFailedError(errors.New("boom"))}
		extractor := NewCachingExtractor(next, memory.NewCacheRepository(time.Minute, time.Minute), time.Minute, zap.NewNop())

		_, err1 := extractor.Extract(s.ctx, s.request)
		_, err2 := extractor.Extract(s.ctx, s.request)

		s.Error(err1)
		s.Error(err2)
		s.Equal(2, next.calls)
	})
}

func TestExtractorTestSuite(t *testing.T) {
	suite.Run(t, new(ExtractorTestSuite))
}
