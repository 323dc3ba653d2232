package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2:latest"
	maxPromptText      = 4000

	// maxResponseBytes caps a generate reply body.
	maxResponseBytes = 4 << 20
)

var errEmptyAnswer = errors.New("model returned no match summary")

// OllamaOption configures an Ollama reasoning client.
type OllamaOption func(*Ollama)

// WithOllamaHTTPClient sets the client for generate calls.
func WithOllamaHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) {
		if c != nil {
			o.client = c
		}
	}
}

// WithOllamaLogger sets a custom logger.
func WithOllamaLogger(l logger.Logger) OllamaOption {
	return func(o *Ollama) {
		if l != nil {
			o.logger = l
		}
	}
}

// Ollama asks a JSON-mode completion endpoint for insights.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	logger  logger.Logger
}

// NewOllama returns a client for baseURL using model. Empty values fall
// back to a local server and llama3.2.
func NewOllama(baseURL, model string, opts ...OllamaOption) *Ollama {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	o := &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
		logger:  logger.Get().Named("reasoning.ollama"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// answer is the JSON the prompt asks for. It tolerates the older
// estimated_effort_hours key.
type answer struct {
	model.Insights
	EffortHours string `json:"estimated_effort_hours"`
}

// Analyze implements analysis.ReasoningService. Every failure is a
// reasoning error; callers fall back to deterministic scoring.
func (o *Ollama) Analyze(ctx context.Context, r model.OpportunityRecord, p model.OrganizationProfile) (model.Insights, error) { //nolint:gocritic // hugeParam: interface signature
	const op = "reasoning.ollama"
	raw, err := o.Generate(ctx, Prompt(r, p))
	if err != nil {
		return model.Insights{}, model.WrapKind(op, model.ErrReasoning, err)
	}

	var a answer
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return model.Insights{}, model.WrapKind(op, model.ErrReasoning, fmt.Errorf("decode insights: %w", err))
	}
	in := a.Insights
	if strings.TrimSpace(in.MatchSummary) == "" {
		return model.Insights{}, model.WrapKind(op, model.ErrReasoning, errEmptyAnswer)
	}
	if in.EstimatedEffort == "" {
		in.EstimatedEffort = a.EffortHours
	}
	for i := range in.DomainMatches {
		in.DomainMatches[i].Strength = model.Strength(strings.ToLower(strings.TrimSpace(string(in.DomainMatches[i].Strength))))
	}
	switch c := model.Confidence(strings.ToLower(strings.TrimSpace(string(in.Confidence)))); c {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
		in.Confidence = c
	default:
		in.Confidence = model.ConfidenceMedium
	}
	o.logger.Debug(ctx, "insights generated",
		logger.String("record_id", r.ID),
		logger.Int("domain_matches", len(in.DomainMatches)),
	)
	return in, nil
}

// Generate sends prompt to the JSON-mode generate endpoint and returns the
// raw model answer.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: o.model, Prompt: prompt, Format: "json"})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status: %d", resp.StatusCode)
	}
	var gr generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return gr.Response, nil
}

// Prompt renders the analysis request for one record and profile.
func Prompt(r model.OpportunityRecord, p model.OrganizationProfile) string { //nolint:gocritic // hugeParam: read-only
	var b strings.Builder
	b.WriteString("You are an expert EU funding consultant. Analyze how well this call fits the company.\n\n")

	b.WriteString("COMPANY:\n")
	fmt.Fprintf(&b, "Name: %s (%s, %s, %d employees)\n", p.Name, p.Type, p.Country, p.Employees)
	fmt.Fprintf(&b, "Description: %s\n", truncate(p.Description))
	b.WriteString("Domains:\n")
	for _, d := range p.Domains {
		fmt.Fprintf(&b, "- %s (%s)", d.Name, d.Level)
		if len(d.SubDomains) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(d.SubDomains, ", "))
		}
		b.WriteString("\n")
	}
	if len(p.Keywords.Include) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(p.Keywords.Include, ", "))
	}
	for _, pp := range p.PastProjects {
		fmt.Fprintf(&b, "Past project: %s (%s)\n", pp.Name, pp.Programme)
	}

	b.WriteString("\nCALL:\n")
	fmt.Fprintf(&b, "ID: %s\nTitle: %s\nProgramme: %s\n", r.ID, r.Title, r.Programme.Name)
	if r.Programme.ActionType != "" {
		fmt.Fprintf(&b, "Action type: %s\n", r.Programme.ActionType)
	}
	if len(r.RequiredDomains) > 0 {
		fmt.Fprintf(&b, "Required domains: %s\n", strings.Join(r.RequiredDomains, ", "))
	}
	if len(r.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(r.Keywords, ", "))
	}
	fmt.Fprintf(&b, "Description: %s\n", truncate(r.Content.Description))

	b.WriteString(`
Reply with JSON only, using exactly these keys:
{
  "match_summary": "2-3 sentences",
  "domain_matches": [{"domain": "...", "requirement": "...", "strength": "strong|moderate|weak", "reasoning": "..."}],
  "keyword_hits": ["..."],
  "relevant_past_projects": ["..."],
  "suggested_partners": ["..."],
  "estimated_effort": "hours range",
  "confidence": "high|medium|low"
}
`)
	return b.String()
}

// truncate cuts s to at most maxPromptText bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxPromptText {
		return s
	}
	cut := maxPromptText
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
