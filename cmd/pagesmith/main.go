package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pagesmith/internal/artifact"
	"pagesmith/internal/config"
	"pagesmith/internal/constraints"
	"pagesmith/internal/feedback"
	"pagesmith/internal/generate"
	"pagesmith/internal/logging"
	"pagesmith/internal/render"
	"pagesmith/internal/review"
	"pagesmith/internal/validation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	debug      bool

	// generate flags
	constraintsPath string
	maxIterations   int
	outPath         string
	screenshotPath  string
	apiKey          string
	model           string
	chromeBin       string
	noReview        bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pagesmith",
	Short: "pagesmith - iterative HTML artifact generator",
	Long: `pagesmith turns a natural-language request into a styled, self-contained
HTML document.

Each candidate is rendered in a headless browser and checked by a staged
validation oracle (structure, rendering, responsiveness, accessibility,
visual review). Failures are fed back to the model as corrections until
the document validates or the iteration budget runs out.`,
}

// generateCmd runs one full generate/validate/repair loop
var generateCmd = &cobra.Command{
	Use:   "generate [request]",
	Short: "Generate an HTML document from a natural-language request",
	Long: `Runs the full loop for a single request:
  1. Generate: produce an HTML candidate from the request
  2. Validate: structural checks, headless-browser rendering, responsive
     and accessibility checks, then an advisory visual review
  3. Repair: encode the failures as a correction and regenerate

The loop stops on the first candidate that validates, or after the
iteration budget is spent, whichever comes first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

// constraintsCmd prints the active constraint set
var constraintsCmd = &cobra.Command{
	Use:   "constraints",
	Short: "Show the active constraint set",
	RunE:  runConstraints,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "pagesmith.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	generateCmd.Flags().StringVar(&constraintsPath, "constraints", "", "Constraint set YAML file (default: built-in set)")
	generateCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Iteration budget (default: from config)")
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the final document here (default: stdout)")
	generateCmd.Flags().StringVar(&screenshotPath, "screenshot", "", "Write the last rendered screenshot here")
	generateCmd.Flags().StringVar(&apiKey, "api-key", "", "Gemini API key (default: GEMINI_API_KEY)")
	generateCmd.Flags().StringVar(&model, "model", "", "Generation model name")
	generateCmd.Flags().StringVar(&chromeBin, "chrome-bin", "", "Chrome/Chromium binary for rendering")
	generateCmd.Flags().BoolVar(&noReview, "no-review", false, "Skip the advisory visual review pass")

	constraintsCmd.Flags().StringVar(&constraintsPath, "constraints", "", "Constraint set YAML file (default: built-in set)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(constraintsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, environment, and command-line flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logging.Debug = true
	}
	if apiKey != "" {
		cfg.Generation.APIKey = apiKey
		cfg.Review.APIKey = apiKey
	}
	if model != "" {
		cfg.Generation.Model = model
	}
	if chromeBin != "" {
		cfg.Render.ChromeBin = chromeBin
	}
	if maxIterations > 0 {
		cfg.Loop.MaxIterations = maxIterations
	}
	if constraintsPath != "" {
		cfg.ConstraintsPath = constraintsPath
	}
	if noReview {
		cfg.Review.Enabled = false
	}
	return cfg, nil
}

func loadConstraints(cfg *config.Config) (constraints.Set, error) {
	if cfg.ConstraintsPath == "" {
		return constraints.Default(), nil
	}
	return constraints.Load(cfg.ConstraintsPath)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Init(cfg.Logging.Debug); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logging.Sync()
	log := logging.L(logging.CategoryLoop)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := loadConstraints(cfg)
	if err != nil {
		return fmt.Errorf("load constraints: %w", err)
	}

	gen, err := generate.NewGeminiGenerator(ctx, cfg.Generation)
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}

	renderer := render.New(cfg.Render)

	var reviewer validation.Reviewer
	if cfg.Review.Enabled {
		vr, err := review.NewVisualReviewer(ctx, cfg.Review)
		if err != nil {
			return fmt.Errorf("create reviewer: %w", err)
		}
		reviewer = vr
	}

	oracle := validation.NewAggregator(set, renderer, reviewer, render.DefaultViewports())
	controller := feedback.NewController(gen, oracle)

	req, err := buildRequest(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	outcome := controller.Run(ctx, req, set, cfg.Loop.MaxIterations)

	reportOutcome(cmd, outcome)

	if screenshotPath != "" {
		if shot := outcome.Screenshot(); len(shot) > 0 {
			if err := os.WriteFile(screenshotPath, shot, 0644); err != nil {
				log.Warn("failed to write screenshot", zap.Error(err))
			}
		}
	}

	if outcome.FinalArtifact == nil {
		return fmt.Errorf("no document produced: %s", outcome.Error)
	}
	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(outcome.FinalArtifact.Content), 0644); err != nil {
			return fmt.Errorf("write document: %w", err)
		}
		cmd.Printf("Wrote %s\n", outPath)
	} else {
		cmd.Println(outcome.FinalArtifact.Content)
	}

	if !outcome.Succeeded {
		return fmt.Errorf("document did not validate within %d iteration(s)", len(outcome.Iterations))
	}
	return nil
}

// buildRequest assembles the generation request from the command line; "-"
// reads the request text from stdin instead.
func buildRequest(args []string, stdin io.Reader) (artifact.GenerationRequest, error) {
	instruction := strings.Join(args, " ")
	if instruction == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return artifact.GenerationRequest{}, fmt.Errorf("read request from stdin: %w", err)
		}
		instruction = strings.TrimSpace(string(data))
	}
	if instruction == "" {
		return artifact.GenerationRequest{}, fmt.Errorf("empty request")
	}
	return artifact.GenerationRequest{Instruction: instruction}, nil
}

func reportOutcome(cmd *cobra.Command, outcome *feedback.Outcome) {
	cmd.PrintErrf("Run %s: %s after %d iteration(s)\n",
		outcome.RunID, outcome.Reason, len(outcome.Iterations))
	for _, rec := range outcome.Iterations {
		errs := rec.Result.Errors()
		warns := rec.Result.Warnings()
		cmd.PrintErrf("  iteration %d: passed=%v errors=%d warnings=%d\n",
			rec.Index, rec.Result.Passed, len(errs), len(warns))
		for _, issue := range errs {
			cmd.PrintErrf("    error   [%s] %s\n", issue.Category, issue.Message)
		}
		for _, issue := range warns {
			cmd.PrintErrf("    warning [%s] %s\n", issue.Category, issue.Message)
		}
	}
}

func runConstraints(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	set, err := loadConstraints(cfg)
	if err != nil {
		return err
	}

	cmd.Printf("Constraint set: %s\n", set.Name)
	cmd.Println("Required markers:")
	for _, m := range set.RequiredMarkers {
		cmd.Printf("  %s\n", m)
	}
	cmd.Println("Required resources:")
	for _, r := range set.RequiredResources {
		cmd.Printf("  %s\n", r)
	}
	cmd.Println("Forbidden patterns:")
	for _, f := range set.Forbidden {
		cmd.Printf("  %s (%s)\n", f.Pattern, f.Reason)
	}
	if set.InlineStylesOnly {
		cmd.Println("Styling: inline/CDN only, no external stylesheets")
	}
	for _, d := range set.StyleDirectives {
		cmd.Printf("Style directive: %s\n", d)
	}
	return nil
}
