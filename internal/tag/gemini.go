package tag

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiSuggester asks a Gemini model for a category when the rule
// waterfall produced nothing. The response is constrained to the known
// category list; anything else is discarded.
type GeminiSuggester struct {
	model string
}

// NewGeminiSuggester creates a suggester for the named model. The client
// reads its API key from the environment, same as the rest of the genai
// tooling.
func NewGeminiSuggester(model string) *GeminiSuggester {
	return &GeminiSuggester{model: model}
}

// Suggest implements Suggester.
func (g *GeminiSuggester) Suggest(ctx context.Context, description string, amount float64, categories []string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("Suggest: create genai client: %w", err)
	}

	prompt := "You are a transaction categorizer for a personal finance ledger.\n\n" +
		"Pick the single best category for this transaction.\n" +
		"Respond with EXACTLY one category name from the list, nothing else.\n" +
		"If none fits, respond with the single word NONE.\n\n" +
		"Categories:\n- " + strings.Join(categories, "\n- ") + "\n\n" +
		fmt.Sprintf("Transaction description: %q\nAmount: %.2f\n", description, amount)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Suggest: generate content: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	for _, cat := range categories {
		if strings.EqualFold(answer, cat) {
			return cat, nil
		}
	}
	// NONE, or a label outside the allowed set.
	return "", nil
}
