package gemini

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/recipesimplifier/api/internal/domain/recipe"
)

var (
	ErrEmptyResponse = errors.New("No response from Gemini")
	ErrNotConfigured = errors.New("Gemini API key not configured")

	leadingFence  = regexp.MustCompile("^```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
	leadingNumber = regexp.MustCompile(`^\d+`)
)

// modelRecipe is the JSON shape the prompt asks for. Models are sloppy about
// types, so scalar fields accept strings or numbers.
type modelRecipe struct {
	Title       flexString      `json:"title"`
	Image       flexString      `json:"image"`
	Ingredients json.RawMessage `json:"ingredients"`
	Steps       json.RawMessage `json:"steps"`
	Servings    flexInt         `json:"servings"`
	PrepTime    flexString      `json:"prepTime"`
	CookTime    flexString      `json:"cookTime"`
	TotalTime   flexString      `json:"totalTime"`
}

type modelIngredient struct {
	Name   flexString `json:"name"`
	Amount flexString `json:"amount"`
	Unit   flexString `json:"unit"`
}

type modelStep struct {
	Step        flexInt    `json:"step"`
	Instruction flexString `json:"instruction"`
}

// flexString decodes a JSON string or number; null leaves it empty.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// objects, arrays and booleans are dropped
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// flexInt decodes a JSON number or a string starting with digits, so "4" and
// "4 servings" both give 4. Anything else leaves it unset.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return nil
	}
	raw := strings.TrimSpace(string(s))
	if n, err := strconv.ParseFloat(raw, 64); err == nil && n >= 0 && n < 1e6 {
		f.value, f.set = int(n), true
		return nil
	}
	if digits := leadingNumber.FindString(raw); digits != "" {
		if n, err := strconv.Atoi(digits); err == nil {
			f.value, f.set = n, true
		}
	}
	return nil
}

// CleanResponse strips surrounding whitespace and markdown code fences.
func CleanResponse(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```") {
		clean = leadingFence.ReplaceAllString(clean, "")
		clean = trailingFence.ReplaceAllString(clean, "")
	}
	return clean
}

// ParseResponse decodes a model reply into a normalized recipe. fallbackImage
// is used when the model leaves the image out.
func ParseResponse(text, fallbackImage string) (*recipe.ParsedRecipe, error) {
	clean := CleanResponse(text)
	if clean == "" {
		return nil, ErrEmptyResponse
	}

	var raw modelRecipe
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, err
	}

	parsed := &recipe.ParsedRecipe{
		Title:       string(raw.Title),
		Ingredients: decodeIngredients(raw.Ingredients),
		Steps:       decodeSteps(raw.Steps),
		Image:       optional(string(raw.Image)),
		PrepTime:    optional(string(raw.PrepTime)),
		CookTime:    optional(string(raw.CookTime)),
		TotalTime:   optional(string(raw.TotalTime)),
	}
	if raw.Servings.set {
		servings := raw.Servings.value
		parsed.Servings = &servings
	}
	if parsed.Image == nil || strings.TrimSpace(*parsed.Image) == "" {
		parsed.Image = optional(fallbackImage)
	}

	parsed.Normalize()
	return parsed, nil
}

// decodeIngredients accepts objects or bare strings; a non-array gives none.
func decodeIngredients(data json.RawMessage) []recipe.Ingredient {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return []recipe.Ingredient{}
	}
	out := make([]recipe.Ingredient, 0, len(items))
	for _, item := range items {
		var name flexString
		if json.Unmarshal(item, &name) == nil && name != "" {
			out = append(out, recipe.Ingredient{Name: string(name)})
			continue
		}
		var ing modelIngredient
		if json.Unmarshal(item, &ing) != nil {
			continue
		}
		out = append(out, recipe.Ingredient{
			Name:   string(ing.Name),
			Amount: string(ing.Amount),
			Unit:   string(ing.Unit),
		})
	}
	return out
}

func decodeSteps(data json.RawMessage) []recipe.Step {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return []recipe.Step{}
	}
	out := make([]recipe.Step, 0, len(items))
	for _, item := range items {
		var text flexString
		if json.Unmarshal(item, &text) == nil && text != "" {
			out = append(out, recipe.Step{Instruction: string(text)})
			continue
		}
		var step modelStep
		if json.Unmarshal(item, &step) != nil {
			continue
		}
		out = append(out, recipe.Step{
			Step:        step.Step.value,
			Instruction: string(step.Instruction),
		})
	}
	return out
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
