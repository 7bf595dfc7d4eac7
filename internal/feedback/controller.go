package feedback

import (
	"context"
	"errors"

	"pagesmith/internal/artifact"
	"pagesmith/internal/constraints"
	"pagesmith/internal/generate"
	"pagesmith/internal/logging"
	"pagesmith/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TerminationReason names why a run stopped.
type TerminationReason string

const (
	ReasonValidated        TerminationReason = "validated"
	ReasonBudgetExhausted  TerminationReason = "iteration_budget_exhausted"
	ReasonGenerationFailed TerminationReason = "generation_failed"
)

// Validator is the oracle the controller drives each candidate through.
type Validator interface {
	Validate(ctx context.Context, markup, instruction string) validation.Result
}

// IterationRecord captures one pass through the loop.
type IterationRecord struct {
	Index    int               `json:"index"`
	Artifact artifact.Artifact `json:"artifact"`
	Result   validation.Result `json:"result"`
}

// Outcome is the final state of a run.
type Outcome struct {
	RunID         string            `json:"run_id"`
	FinalArtifact *artifact.Artifact `json:"final_artifact,omitempty"`
	Succeeded     bool              `json:"succeeded"`
	Reason        TerminationReason `json:"reason"`
	Iterations    []IterationRecord `json:"iterations"`
	Error         string            `json:"error,omitempty"`
}

// Screenshot returns the screenshot of the last iteration, if any.
func (o *Outcome) Screenshot() []byte {
	if len(o.Iterations) == 0 {
		return nil
	}
	return o.Iterations[len(o.Iterations)-1].Result.Screenshot
}

// Controller runs the generate/validate/repair loop until the artifact
// validates or the iteration budget runs out.
type Controller struct {
	gen       generate.Generator
	validator Validator
	log       *zap.Logger
}

// NewController wires a generator to a validation oracle.
func NewController(gen generate.Generator, validator Validator) *Controller {
	return &Controller{
		gen:       gen,
		validator: validator,
		log:       logging.L(logging.CategoryLoop),
	}
}

// Run executes up to maxIterations generate/validate cycles. A candidate that
// passes validation ends the run immediately. When the budget runs out, the
// most recent candidate is still returned so the caller can inspect or keep
// it. A generation failure aborts the run: a correction loop that cannot
// produce new candidates has nothing left to repair with, though any earlier
// candidate is still handed back best-effort.
func (c *Controller) Run(ctx context.Context, req artifact.GenerationRequest, set constraints.Set, maxIterations int) *Outcome {
	if maxIterations < 1 {
		maxIterations = 1
	}
	out := &Outcome{RunID: uuid.NewString()}
	log := c.log.With(zap.String("run_id", out.RunID))
	log.Info("starting run",
		zap.Int("max_iterations", maxIterations),
		zap.String("constraint_set", set.Name))

	prior := ""
	correction := ""
	for i := 1; i <= maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			c.abort(out, err)
			log.Warn("run cancelled", zap.Int("iteration", i), zap.Error(err))
			return out
		}

		markup, err := c.gen.Generate(ctx, req, set, prior, correction)
		if err != nil {
			c.abort(out, err)
			if errors.Is(err, generate.ErrNoMarkup) {
				log.Warn("model produced no usable markup", zap.Int("iteration", i))
			} else {
				log.Warn("generation failed", zap.Int("iteration", i), zap.Error(err))
			}
			return out
		}

		cand := artifact.Artifact{Content: markup, Iteration: i}
		result := c.validator.Validate(ctx, markup, req.Instruction)
		out.Iterations = append(out.Iterations, IterationRecord{
			Index:    i,
			Artifact: cand,
			Result:   result,
		})
		log.Info("iteration complete",
			zap.Int("iteration", i),
			zap.Bool("passed", result.Passed),
			zap.Int("errors", len(result.Errors())),
			zap.Int("warnings", len(result.Warnings())))

		if result.Passed {
			out.FinalArtifact = &cand
			out.Succeeded = true
			out.Reason = ReasonValidated
			return out
		}

		prior = markup
		correction = Encode(result)
	}

	last := out.Iterations[len(out.Iterations)-1].Artifact
	out.FinalArtifact = &last
	out.Reason = ReasonBudgetExhausted
	log.Warn("iteration budget exhausted", zap.Int("iterations", len(out.Iterations)))
	return out
}

// abort marks the run as failed. The most recent candidate, if one exists, is
// kept as a best-effort final artifact; Succeeded stays false.
func (c *Controller) abort(out *Outcome, err error) {
	out.Reason = ReasonGenerationFailed
	out.Error = err.Error()
	if n := len(out.Iterations); n > 0 {
		last := out.Iterations[n-1].Artifact
		out.FinalArtifact = &last
	}
}
