package summary

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"financeflow/internal/core"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.0-flash"

// Gemini asks a Gemini model for a conversational summary of the month.
// Auth and Vertex-vs-Developer API selection follow the SDK's standard
// environment variables (GEMINI_API_KEY or GOOGLE_GENAI_USE_VERTEXAI plus
// project and location).
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, in Input) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(in)},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func buildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a short, friendly summary (3 sentences max) of this personal spending month. Plain text only.\n\n")
	fmt.Fprintf(&b, "Month: %s %d\n", in.Month, in.Year)
	fmt.Fprintf(&b, "Income: %s %s\n", in.Overview.Income.StringFixed(2), core.BaseCurrency)
	fmt.Fprintf(&b, "Expenses: %s %s\n", in.Overview.Expense.StringFixed(2), core.BaseCurrency)
	fmt.Fprintf(&b, "Balance: %s %s\n", in.Overview.Balance.StringFixed(2), core.BaseCurrency)

	if len(in.Breakdown.Categories) > 0 {
		b.WriteString("Spending by category:\n")
		for _, c := range in.Breakdown.Categories {
			fmt.Fprintf(&b, "- %s: %s %s\n", c.Category, c.Total.StringFixed(2), core.BaseCurrency)
		}
	}
	if len(in.Budgets) > 0 {
		b.WriteString("Budget goals:\n")
		for _, bs := range in.Budgets {
			fmt.Fprintf(&b, "- %s: spent %s of %s (%d%%)\n",
				bs.Category, bs.Spent.StringFixed(2), bs.Goal.StringFixed(2), int(bs.Progress*100))
		}
	}
	return b.String()
}
