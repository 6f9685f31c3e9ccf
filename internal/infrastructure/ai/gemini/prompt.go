package gemini

import (
	"fmt"
	"strings"

	"github.com/recipesimplifier/api/internal/ports/outbound"
)

// BuildPrompt renders the extraction prompt for a scraped page.
func BuildPrompt(req outbound.ExtractionRequest) string {
	lang := req.Locale.Language()
	page := req.Page

	var prompt strings.Builder
	prompt.WriteString("Extract recipe information from this recipe and return it as JSON. ")
	prompt.WriteString("Focus on finding the recipe title, ingredients list, and step-by-step instructions.\n\n")
	prompt.WriteString(fmt.Sprintf("IMPORTANT: Return all text content (title, ingredient names, instructions, time values) in %s language.\n\n", lang))

	prompt.WriteString(fmt.Sprintf("URL: %s\n", page.URL))
	prompt.WriteString(fmt.Sprintf("Title: %s\n", page.Title))
	if page.Image != "" {
		prompt.WriteString(fmt.Sprintf("Image: %s\n", page.Image))
	}

	prompt.WriteString(fmt.Sprintf("\nContent: %s", page.Text))
	if !req.Customizations.Empty() {
		prompt.WriteString(fmt.Sprintf("\n\nCUSTOM INSTRUCTIONS: %s\n", req.Customizations.Joined()))
		prompt.WriteString("Please follow these instructions when processing the recipe.")
	}

	prompt.WriteString("\n\nReturn JSON in this exact format:\n{\n")
	prompt.WriteString(fmt.Sprintf("  \"title\": \"Recipe Title in %s\",\n", lang))
	prompt.WriteString(fmt.Sprintf("  \"image\": %q,\n", page.Image))
	prompt.WriteString("  \"ingredients\": [\n")
	prompt.WriteString(fmt.Sprintf("    {\"name\": \"ingredient name in %s\", \"amount\": \"1\", \"unit\": \"cup\"},\n", lang))
	prompt.WriteString(fmt.Sprintf("    {\"name\": \"another ingredient in %s\", \"amount\": \"2\", \"unit\": \"tbsp\"}\n", lang))
	prompt.WriteString("  ],\n  \"steps\": [\n")
	prompt.WriteString(fmt.Sprintf("    {\"step\": 1, \"instruction\": \"First step instruction in %s\"},\n", lang))
	prompt.WriteString(fmt.Sprintf("    {\"step\": 2, \"instruction\": \"Second step instruction in %s\"}\n", lang))
	prompt.WriteString("  ],\n")
	prompt.WriteString("  \"servings\": 4,\n")
	prompt.WriteString("  \"prepTime\": \"15 minutes\",\n")
	prompt.WriteString("  \"cookTime\": \"30 minutes\",\n")
	prompt.WriteString("  \"totalTime\": \"45 minutes\"\n}\n\n")
	prompt.WriteString("Only return valid JSON, no other text.")

	return prompt.String()
}
