package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	"finlink/internal/logger"
)

// GeminiClassifier asks Gemini to pick the best-fitting category from the
// user's own list. The model is instructed to return strict JSON.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

// NewGemini creates a classifier backed by the Gemini API. The API key is
// read from the environment by the client library.
func NewGemini(ctx context.Context, model string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClassifier{client: client, model: model}, nil
}

type geminiAnswer struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (g *GeminiClassifier) Classify(ctx context.Context, req Request) (*Result, error) {
	if len(req.Candidates) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(req)
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		logger.Get().Warnw("classifier call failed", "error", err)
		return nil, nil
	}

	raw := resp.Text()
	if raw == "" {
		return nil, nil
	}

	var answer geminiAnswer
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answer); err != nil {
		logger.Get().Warnw("classifier returned unparseable response", "raw", raw)
		return nil, nil
	}

	// The answer must name one of the offered candidates.
	for _, c := range req.Candidates {
		if strings.EqualFold(c.Name, answer.Category) {
			conf := answer.Confidence
			if conf <= 0 || conf > 1 {
				conf = 0.5
			}
			return &Result{CategoryName: c.Name, Confidence: conf}, nil
		}
	}
	return nil, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a personal-finance categorization assistant.\n\n")
	b.WriteString("Pick the single best category for this transaction from the list below.\n")
	b.WriteString("Output STRICT JSON only, no code fences, in the form:\n")
	b.WriteString(`{"category": "<one of the listed names>", "confidence": <0..1>}` + "\n\n")
	b.WriteString("Transaction:\n")
	if req.MerchantName != "" {
		b.WriteString("- merchant: " + req.MerchantName + "\n")
	}
	b.WriteString("- description: " + req.Description + "\n")
	b.WriteString("- amount: " + req.Amount.String() + "\n")
	if req.Type != "" {
		b.WriteString("- type: " + req.Type + "\n")
	}
	b.WriteString("\nCategories:\n")
	for _, c := range req.Candidates {
		b.WriteString("- " + c.Name + "\n")
	}
	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
