package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Gemini implements Classifier using Google GenAI.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini-backed classifier. The API key is read by the
// genai client from its client config.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Gemini{client: client, model: model, logger: logger}, nil
}

// MapColumns asks the model for a target-field → source-column mapping.
// Any transport or decode problem degrades to ErrNoAnswer.
func (g *Gemini) MapColumns(ctx context.Context, req ColumnMappingRequest) (map[string]string, error) {
	prompt, err := buildMappingPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAnswer, err)
	}

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("column mapping classification failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrNoAnswer, err)
	}

	var proposed map[string]*string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &proposed); err != nil {
		g.logger.Warn("column mapping response is not valid JSON", slog.Any("error", err))
		return nil, fmt.Errorf("%w: invalid JSON response", ErrNoAnswer)
	}

	mapping := make(map[string]string, len(proposed))
	for field, col := range proposed {
		if col == nil {
			mapping[field] = ""
			continue
		}
		mapping[field] = strings.TrimSpace(*col)
	}
	return mapping, nil
}

// ClassifyAsset asks the model for an asset type and ticker symbol.
func (g *Gemini) ClassifyAsset(ctx context.Context, assetName string, validTypes []string) (*AssetAnswer, error) {
	assetName = strings.TrimSpace(assetName)
	if assetName == "" {
		return nil, ErrNoAnswer
	}

	prompt := buildAssetPrompt(assetName, validTypes)
	raw, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("asset classification failed",
			slog.String("asset", assetName),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrNoAnswer, err)
	}

	var answer struct {
		AssetType string `json:"asset_type"`
		Symbol    string `json:"symbol"`
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answer); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON response", ErrNoAnswer)
	}

	answer.AssetType = strings.ToLower(strings.TrimSpace(answer.AssetType))
	answer.Symbol = strings.TrimSpace(answer.Symbol)

	valid := false
	for _, t := range validTypes {
		if answer.AssetType == t {
			valid = true
			break
		}
	}
	// A ticker longer than any real symbol means the model hallucinated.
	if !valid || len(answer.Symbol) > 20 {
		return nil, ErrNoAnswer
	}

	return &AssetAnswer{Type: answer.AssetType, Symbol: answer.Symbol}, nil
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

func buildMappingPrompt(req ColumnMappingRequest) (string, error) {
	targets, err := json.MarshalIndent(req.TargetFields, "", "  ")
	if err != nil {
		return "", err
	}
	sources, err := json.MarshalIndent(req.SourceColumns, "", "  ")
	if err != nil {
		return "", err
	}
	sample, err := json.MarshalIndent(req.SampleRows, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a data mapping expert. Map source columns to target columns based on their meaning and content.\n\n")
	b.WriteString("TARGET SCHEMA (required columns):\n")
	b.Write(targets)
	b.WriteString("\n\nTARGET COLUMN DESCRIPTIONS:\n")
	b.WriteString("- asset_name: Name of the asset (stock, crypto, etc.)\n")
	b.WriteString("- date: Transaction or record date\n")
	b.WriteString("- asset_price: Price per unit/item of the asset\n")
	b.WriteString("- volume: Quantity or number of assets\n")
	b.WriteString("- transaction_amount: Total transaction amount (can be calculated if missing)\n")
	b.WriteString("- fee: Transaction fee (set to null if not available)\n")
	b.WriteString("- currency: Currency code (USD, EUR, etc.)\n")
	b.WriteString("- transaction_type: Kind of transaction (buy, sell, dividend, ...)\n")
	b.WriteString("\nSOURCE COLUMNS:\n")
	b.Write(sources)
	b.WriteString("\n\nSAMPLE DATA FROM SOURCE (first few rows):\n")
	b.Write(sample)
	b.WriteString("\n\nINSTRUCTIONS:\n")
	b.WriteString("1. Map each TARGET column to the most appropriate SOURCE column.\n")
	b.WriteString("2. If no appropriate source column exists, use null.\n")
	b.WriteString("3. Return ONLY a valid JSON object mapping TARGET names (keys) to SOURCE names (values).\n")
	b.WriteString("Do NOT wrap the response in code fences. Output must begin with \"{\" and end with \"}\".\n")
	return b.String(), nil
}

func buildAssetPrompt(assetName string, validTypes []string) string {
	var b strings.Builder
	b.WriteString("You are an asset classification expert. Classify the asset type and provide a ticker symbol.\n\n")
	b.WriteString("ASSET NAME: ")
	b.WriteString(assetName)
	b.WriteString("\n\nASSET TYPES (valid options):\n")
	for _, t := range validTypes {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY valid JSON: {\"asset_type\": \"...\", \"symbol\": \"...\"}\n")
	b.WriteString("Use an empty string for the symbol when none exists. No additional text.\n")
	return b.String()
}

// cleanModelJSON strips markdown fences and surrounding junk when the model
// ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
