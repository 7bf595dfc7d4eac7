package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pagesmith/internal/artifact"
	"pagesmith/internal/constraints"
	"pagesmith/internal/logging"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const generationSystemPrompt = `You are an expert web designer producing a single, complete, self-contained HTML document.

Rules:
- Output exactly one HTML document inside a ` + "```html" + ` code block.
- The document must be fully self-contained apart from the resource declarations listed below.
- Never include commentary outside the code block.
- Never invent external URLs beyond the required resources.`

// Config for the Gemini-backed generator.
type Config struct {
	APIKey      string `yaml:"api_key" json:"-"`
	Model       string `yaml:"model" json:"model"`
	TimeoutMs   int    `yaml:"timeout_ms" json:"timeout_ms"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:      apiKey,
		Model:       "gemini-2.5-flash",
		TimeoutMs:   60000,
		Temperature: 0.7,
	}
}

// Timeout bounds one generation call. Generation is the slowest step of the
// loop; tens of seconds is normal for a full page.
func (c Config) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	cfg    Config
	log    *zap.Logger
}

// NewGeminiGenerator creates the generator. The API key is required.
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
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
	return &GeminiGenerator{
		client: client,
		cfg:    cfg,
		log:    logging.L(logging.CategoryGenerate),
	}, nil
}

// Generate calls the model once and extracts the HTML document from its
// answer. Every error path returns a *Failure: the loop treats generation
// errors as terminal for the request.
func (g *GeminiGenerator) Generate(ctx context.Context, req artifact.GenerationRequest, set constraints.Set, prior, correction string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout())
	defer cancel()

	system := BuildSystemPrompt(set)
	user := BuildUserPrompt(req, prior, correction)
	g.log.Debug("generation call",
		zap.String("model", g.cfg.Model),
		zap.Int("prompt_bytes", len(user)),
		zap.Bool("retry", correction != ""))

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr(g.cfg.Temperature),
		})
	if err != nil {
		return "", &Failure{Err: fmt.Errorf("gemini call: %w", err)}
	}

	markup := ExtractMarkup(resp.Text())
	if markup == "" {
		return "", &Failure{Err: ErrNoMarkup}
	}
	g.log.Info("candidate generated",
		zap.Int("markup_bytes", len(markup)),
		zap.Duration("elapsed", time.Since(start)))
	return markup, nil
}

// BuildSystemPrompt folds the constraint set into the system instruction so
// the model knows the rules the validators will enforce.
func BuildSystemPrompt(set constraints.Set) string {
	var sb strings.Builder
	sb.WriteString(generationSystemPrompt)

	if len(set.RequiredResources) > 0 {
		sb.WriteString("\n\nRequired resource declarations (include each exactly once):\n")
		for _, res := range set.RequiredResources {
			sb.WriteString("- " + res + "\n")
		}
	}
	if len(set.RequiredMarkers) > 0 {
		sb.WriteString("\nThe document must contain:\n")
		for _, m := range set.RequiredMarkers {
			sb.WriteString("- " + m + "\n")
		}
	}
	for _, f := range set.Forbidden {
		sb.WriteString(fmt.Sprintf("\nNever use %q (%s).", f.Pattern, f.Reason))
	}
	if len(set.StyleDirectives) > 0 {
		sb.WriteString("\n\nStyle rules:\n")
		for _, d := range set.StyleDirectives {
			sb.WriteString("- " + d + "\n")
		}
	}
	return sb.String()
}

// BuildUserPrompt assembles the user turn: instruction, context snippets,
// conversation, and — on repair attempts — the previous markup plus the
// encoded correction.
func BuildUserPrompt(req artifact.GenerationRequest, prior, correction string) string {
	var sb strings.Builder

	if len(req.Conversation) > 0 {
		sb.WriteString("Earlier conversation:\n")
		for _, turn := range req.Conversation {
			sb.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Text))
		}
		sb.WriteString("\n")
	}

	if len(req.ContextSnippets) > 0 {
		sb.WriteString("Reference material:\n")
		for i, snippet := range req.ContextSnippets {
			sb.WriteString(fmt.Sprintf("--- snippet %d ---\n%s\n", i+1, snippet))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Request: " + req.Instruction + "\n")

	// The artifact being revised, if any: either from the session (the user is
	// editing an earlier result) or from the previous loop iteration.
	base := prior
	if base == "" {
		base = req.PriorArtifact
	}
	if base != "" {
		sb.WriteString("\nCurrent version of the document:\n```html\n" + base + "\n```\n")
	}
	if correction != "" {
		sb.WriteString("\n" + correction + "\n")
	}

	sb.WriteString("\nProduce the complete corrected HTML document:")
	return sb.String()
}
