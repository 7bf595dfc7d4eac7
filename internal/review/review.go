// Package review sends the rendered screenshot to a vision-capable model for
// a semantic pass/fail. The review is advisory: any failure of the service,
// the transport, or the response format degrades to zero issues, because the
// deterministic validators already guarantee a minimally valid artifact.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pagesmith/internal/logging"
	"pagesmith/internal/validation"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const reviewSystemPrompt = `You are a design reviewer. You are shown a screenshot of a generated web page and the request it was built from.
Judge whether the page plausibly fulfils the request and looks professionally designed: visual hierarchy, spacing, readable contrast, no broken or overlapping elements.

Answer with JSON only:
{"is_valid": true|false, "issues": ["specific, actionable problem", ...]}

is_valid=false only for problems a user would consider defects. Minor taste issues belong in issues with is_valid=true.`

// Config for the vision review call.
type Config struct {
	APIKey    string `yaml:"api_key" json:"-"`
	Model     string `yaml:"model" json:"model"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
	Enabled   bool   `yaml:"enabled" json:"enabled"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		Model:     "gemini-2.5-flash",
		TimeoutMs: 30000,
		Enabled:   true,
	}
}

func (c Config) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// complete is the model call, injectable for tests.
type complete func(ctx context.Context, screenshot []byte, prompt string) (string, error)

// VisualReviewer implements validation.Reviewer against the Gemini vision API.
type VisualReviewer struct {
	cfg  Config
	call complete
	log  *zap.Logger
}

// NewVisualReviewer creates the reviewer.
func NewVisualReviewer(ctx context.Context, cfg Config) (*VisualReviewer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	r := &VisualReviewer{cfg: cfg, log: logging.L(logging.CategoryReview)}
	r.call = func(ctx context.Context, screenshot []byte, prompt string) (string, error) {
		parts := []*genai.Part{
			genai.NewPartFromBytes(screenshot, "image/png"),
			genai.NewPartFromText(prompt),
		}
		resp, err := client.Models.GenerateContent(ctx, cfg.Model,
			[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
			&genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(reviewSystemPrompt, genai.RoleUser),
			})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return r, nil
}

// Review judges the screenshot against the instruction. Failures are logged
// and swallowed: the returned slice is empty, never an error.
func (r *VisualReviewer) Review(ctx context.Context, screenshot []byte, instruction string) []validation.Issue {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout())
	defer cancel()

	prompt := "The page was generated from this request:\n" + instruction
	text, err := r.call(ctx, screenshot, prompt)
	if err != nil {
		r.log.Warn("visual review call failed, skipping", zap.Error(err))
		return nil
	}

	issues, err := ParseVerdict(text)
	if err != nil {
		r.log.Warn("visual review response unparsable, skipping", zap.Error(err))
		return nil
	}
	return issues
}

// verdict is the JSON shape the reviewer model is asked for.
type verdict struct {
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
}

// ParseVerdict decodes a review response into visual issues. Severity follows
// the overall verdict: a failing review makes every issue an error, a passing
// review leaves them as warnings.
func ParseVerdict(text string) ([]validation.Issue, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode review verdict: %w", err)
	}

	severity := validation.SeverityWarning
	if !v.IsValid {
		severity = validation.SeverityError
	}
	issues := make([]validation.Issue, 0, len(v.Issues))
	for _, msg := range v.Issues {
		msg = strings.TrimSpace(msg)
		if msg == "" {
			continue
		}
		issues = append(issues, validation.Issue{
			Severity: severity,
			Category: validation.CategoryVisual,
			Message:  msg,
		})
	}
	// A failing verdict with no itemized issues still has to fail the candidate.
	if !v.IsValid && len(issues) == 0 {
		issues = append(issues, validation.Errorf(validation.CategoryVisual,
			"page does not visually fulfil the request"))
	}
	return issues, nil
}

// extractJSON finds the first balanced JSON object in mixed model output.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
