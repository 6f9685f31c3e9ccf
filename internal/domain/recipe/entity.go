// Package recipe holds the recipe model produced by extraction and stored in
// a user's cookbook.
package recipe

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultTitle is used when the model returns a recipe without a title.
const DefaultTitle = "Untitled Recipe"

const maxTitleLength = 300

// Ingredient is a single ingredient line. Amount and Unit are optional because
// many pages list ingredients like "salt to taste".
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"`
}

// Step is a numbered instruction.
type Step struct {
	Step        int    `json:"step"`
	Instruction string `json:"instruction"`
}

// ParsedRecipe is the structured result of simplifying a recipe page.
type ParsedRecipe struct {
	Title       string       `json:"title"`
	Image       *string      `json:"image,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	Servings    *int         `json:"servings,omitempty"`
	PrepTime    *string      `json:"prep_time,omitempty"`
	CookTime    *string      `json:"cook_time,omitempty"`
	TotalTime   *string      `json:"total_time,omitempty"`
}

// Normalize applies the defaults clients rely on: a non-empty title, non-nil
// slices, sequential step numbers where missing, and nil for blank optionals.
func (p *ParsedRecipe) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Ingredients == nil {
		p.Ingredients = []Ingredient{}
	}
	if p.Steps == nil {
		p.Steps = []Step{}
	}

	ingredients := p.Ingredients[:0]
	for _, ing := range p.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Amount = strings.TrimSpace(ing.Amount)
		ing.Unit = strings.TrimSpace(ing.Unit)
		if ing.Name == "" {
			continue
		}
		ingredients = append(ingredients, ing)
	}
	p.Ingredients = ingredients

	steps := p.Steps[:0]
	for _, s := range p.Steps {
		s.Instruction = strings.TrimSpace(s.Instruction)
		if s.Instruction == "" {
			continue
		}
		steps = append(steps, s)
	}
	for i := range steps {
		if steps[i].Step <= 0 {
			steps[i].Step = i + 1
		}
	}
	p.Steps = steps

	p.Image = blankToNil(p.Image)
	p.PrepTime = blankToNil(p.PrepTime)
	p.CookTime = blankToNil(p.CookTime)
	p.TotalTime = blankToNil(p.TotalTime)
	if p.Servings != nil && *p.Servings <= 0 {
		p.Servings = nil
	}
}

// SavedRecipe is a recipe stored in a user's cookbook.
type SavedRecipe struct {
	ParsedRecipe
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	SourceURL *string   `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSavedRecipe validates parsed and assigns it to userID.
func NewSavedRecipe(userID uuid.UUID, parsed ParsedRecipe, sourceURL string) (*SavedRecipe, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingOwner
	}
	if strings.TrimSpace(parsed.Title) == "" {
		return nil, ErrTitleRequired
	}
	if utf8.RuneCountInString(parsed.Title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}
	parsed.Normalize()

	saved := &SavedRecipe{
		ParsedRecipe: parsed,
		ID:           uuid.New(),
		UserID:       userID,
		CreatedAt:    time.Now().UTC(),
	}
	if src := strings.TrimSpace(sourceURL); src != "" {
		saved.SourceURL = &src
	}
	return saved, nil
}

// OwnedBy reports whether userID owns the recipe.
func (r *SavedRecipe) OwnedBy(userID uuid.UUID) bool {
	return r.UserID == userID
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
