// Package render loads a candidate artifact into an isolated headless Chrome
// sandbox, exercises it at each requested viewport, and reports a snapshot of
// what happened: a screenshot, console diagnostics, and per-viewport layout
// metrics. One sandbox per candidate, torn down on every exit path.
package render

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"pagesmith/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Viewport is one emulated screen size.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// DefaultViewports cover a phone and a landscape tablet/desktop split.
func DefaultViewports() []Viewport {
	return []Viewport{
		{Width: 375, Height: 667},
		{Width: 1024, Height: 768},
		{Width: 1920, Height: 1080},
	}
}

// Metrics are the layout measurements taken at one viewport.
type Metrics struct {
	HasHorizontalOverflow bool `json:"has_horizontal_overflow"`
	DOMNodeCount          int  `json:"dom_node_count"`
}

// Snapshot is everything captured from one rendering pass.
type Snapshot struct {
	// Screenshot is a full-page PNG taken at the first (primary) viewport.
	Screenshot []byte

	// Console holds console API lines emitted while the page ran,
	// prefixed with their level ("error: ...", "log: ...").
	Console []string

	// Metrics maps each requested viewport to its measurements.
	Metrics map[Viewport]Metrics
}

// Failure wraps any error from the rendering sandbox: launch problems,
// navigation timeouts, crashed capture. Callers treat it as a defect of the
// candidate pass, not of the whole request.
type Failure struct {
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("rendering failed during %s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Config controls the rendering sandbox.
type Config struct {
	ChromeBin       string `yaml:"chrome_bin" json:"chrome_bin"`
	Headless        bool   `yaml:"headless" json:"headless"`
	SettleDelayMs   int    `yaml:"settle_delay_ms" json:"settle_delay_ms"`
	RenderTimeoutMs int    `yaml:"render_timeout_ms" json:"render_timeout_ms"`

	// MaxConcurrent bounds how many sandboxes may be open across requests.
	// Each sandbox is a full Chrome process; excess requests queue.
	MaxConcurrent int64 `yaml:"max_concurrent" json:"max_concurrent"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:        true,
		SettleDelayMs:   1500,
		RenderTimeoutMs: 20000,
		MaxConcurrent:   4,
	}
}

// SettleDelay is how long the page gets for client-side initialization
// before anything is measured.
func (c Config) SettleDelay() time.Duration {
	if c.SettleDelayMs <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// RenderTimeout bounds one full rendering pass.
func (c Config) RenderTimeout() time.Duration {
	if c.RenderTimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.RenderTimeoutMs) * time.Millisecond
}

// sandbox abstracts one isolated rendering context. The Chrome-backed
// implementation lives in chrome.go; tests substitute their own.
type sandbox interface {
	LoadHTML(ctx context.Context, markup string) error
	SetViewport(ctx context.Context, vp Viewport) error
	CollectMetrics(ctx context.Context) (Metrics, error)
	Screenshot(ctx context.Context) ([]byte, error)
	ConsoleLines() []string
	Close() error
}

// Renderer runs rendering passes, one fresh sandbox per candidate.
type Renderer struct {
	cfg        Config
	sem        *semaphore.Weighted
	newSandbox func(ctx context.Context) (sandbox, error)
	open       atomic.Int64
	log        *zap.Logger
}

// New creates a Renderer with the Chrome sandbox backend.
func New(cfg Config) *Renderer {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	r := &Renderer{
		cfg: cfg,
		sem: semaphore.NewWeighted(limit),
		log: logging.L(logging.CategoryRender),
	}
	r.newSandbox = r.launchChrome
	return r
}

// OpenSandboxes reports how many sandboxes are currently alive.
func (r *Renderer) OpenSandboxes() int64 {
	return r.open.Load()
}

// Render loads the markup into a fresh sandbox and measures it at each
// viewport. The sandbox is always torn down before Render returns,
// whatever path got us there. Any error is a *Failure.
func (r *Renderer) Render(ctx context.Context, markup string, viewports []Viewport) (*Snapshot, error) {
	if len(viewports) == 0 {
		viewports = DefaultViewports()
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RenderTimeout())
	defer cancel()

	// Admission: block until a sandbox slot frees up rather than failing.
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, &Failure{Stage: "admission", Err: err}
	}
	defer r.sem.Release(1)

	sb, err := r.newSandbox(ctx)
	if err != nil {
		return nil, &Failure{Stage: "launch", Err: err}
	}
	r.open.Add(1)
	defer func() {
		if cerr := sb.Close(); cerr != nil {
			r.log.Warn("sandbox close", zap.Error(cerr))
		}
		r.open.Add(-1)
	}()

	start := time.Now()
	if err := sb.LoadHTML(ctx, markup); err != nil {
		return nil, &Failure{Stage: "load", Err: err}
	}

	snap := &Snapshot{Metrics: make(map[Viewport]Metrics, len(viewports))}
	for i, vp := range viewports {
		if err := sb.SetViewport(ctx, vp); err != nil {
			return nil, &Failure{Stage: "viewport " + vp.String(), Err: err}
		}
		m, err := sb.CollectMetrics(ctx)
		if err != nil {
			return nil, &Failure{Stage: "metrics " + vp.String(), Err: err}
		}
		snap.Metrics[vp] = m

		// Screenshot once, at the primary viewport.
		if i == 0 {
			shot, err := sb.Screenshot(ctx)
			if err != nil {
				return nil, &Failure{Stage: "screenshot", Err: err}
			}
			snap.Screenshot = shot
		}
	}
	snap.Console = sb.ConsoleLines()

	r.log.Debug("render pass complete",
		zap.Int("viewports", len(viewports)),
		zap.Int("console_lines", len(snap.Console)),
		zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}
