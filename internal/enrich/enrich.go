// Package enrich guesses company metadata (stage, headcount, investors)
// with a language model. It is used on demand from the admin API and is
// never on the ingestion path.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type Details struct {
	Stage           string   `json:"stage,omitempty"`
	EmployeeCount   Count    `json:"employeeCount,omitempty"`
	Investors       []string `json:"investors,omitempty"`
	RecentFinancing string   `json:"recentFinancing,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}

// Count is an employee count; models answer with either a number or a
// range such as "51-200".
type Count string

func (c *Count) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*c = ""
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*c = Count(strconv.FormatInt(int64(n), 10))
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	*c = Count(strings.TrimSpace(str))
	return nil
}

type Enricher interface {
	Enrich(ctx context.Context, name, website string) (Details, error)
}

type LLMEnricher struct {
	model   llms.Model
	timeout time.Duration
}

func NewLLMEnricher(model llms.Model, timeout time.Duration) *LLMEnricher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMEnricher{model: model, timeout: timeout}
}

// NewGemini builds an enricher on Google's Gemini models.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*LLMEnricher, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewLLMEnricher(llm, timeout), nil
}

const companyPrompt = `
You are a research assistant filling in a company profile for a job board.

### OUTPUT SCHEMA:
{
  "stage": "Funding stage, e.g. Seed, Series A, Series B, Public, Bootstrapped",
  "employeeCount": "Approximate headcount or range, e.g. 51-200",
  "investors": ["Notable", "investors"],
  "recentFinancing": "Most recent round with amount and date if known",
  "summary": "One sentence on what the company does"
}

### CONSTRAINT:
Answer with valid JSON only, no markdown. If a value is unknown set it to null. Do not guess.

### COMPANY:
Name: %s
Website: %s
`

func (e *LLMEnricher) Enrich(ctx context.Context, name, website string) (Details, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Details{}, errors.New("company name is required")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf(companyPrompt, name, strings.TrimSpace(website))
	resp, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt, llms.WithTemperature(0))
	if err != nil {
		return Details{}, fmt.Errorf("generate: %w", err)
	}
	return ParseDetails(resp)
}

// ParseDetails reads the model's answer, tolerating markdown fences and
// text around the JSON object.
func ParseDetails(resp string) (Details, error) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start < 0 || end < start {
		return Details{}, fmt.Errorf("no JSON object in model response")
	}
	var d Details
	if err := json.Unmarshal([]byte(resp[start:end+1]), &d); err != nil {
		return Details{}, fmt.Errorf("decode model response: %w", err)
	}
	return d, nil
}
