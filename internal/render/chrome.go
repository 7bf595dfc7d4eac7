package render

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// chromeSandbox is one throwaway headless Chrome instance. It is never reused
// across candidates; Close kills the whole browser process.
type chromeSandbox struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	settle   time.Duration

	stopEvents context.CancelFunc

	mu      sync.Mutex
	console []string
}

func (r *Renderer) launchChrome(ctx context.Context) (sandbox, error) {
	l := launcher.New().Headless(r.cfg.Headless)
	if r.cfg.ChromeBin != "" {
		l = l.Bin(r.cfg.ChromeBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	sb := &chromeSandbox{
		launcher: l,
		browser:  browser,
		page:     page,
		settle:   r.cfg.SettleDelay(),
	}

	evCtx, cancel := context.WithCancel(ctx)
	sb.stopEvents = cancel
	wait := page.Context(evCtx).EachEvent(func(ev *proto.RuntimeConsoleAPICalled) {
		line := string(ev.Type) + ": " + stringifyConsoleArgs(ev.Args)
		sb.mu.Lock()
		sb.console = append(sb.console, line)
		sb.mu.Unlock()
	})
	go wait()

	return sb, nil
}

func (sb *chromeSandbox) LoadHTML(ctx context.Context, markup string) error {
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(markup))
	page := sb.page.Context(ctx)
	if err := page.Navigate(dataURL); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}

	// Fixed settle interval for client-side initialization (CDN scripts,
	// utility-class runtimes) before anything is measured.
	select {
	case <-time.After(sb.settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sb *chromeSandbox) SetViewport(ctx context.Context, vp Viewport) error {
	return (proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1.0,
		Mobile:            vp.Width < 768,
	}).Call(sb.page.Context(ctx))
}

func (sb *chromeSandbox) CollectMetrics(ctx context.Context) (Metrics, error) {
	res, err := sb.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		() => ({
			hasHorizontalOverflow: document.documentElement.scrollWidth > window.innerWidth,
			domNodeCount: document.querySelectorAll('*').length
		})
		`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return Metrics{}, err
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return Metrics{}, err
	}
	var m struct {
		HasHorizontalOverflow bool `json:"hasHorizontalOverflow"`
		DOMNodeCount          int  `json:"domNodeCount"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metrics{}, err
	}
	return Metrics{HasHorizontalOverflow: m.HasHorizontalOverflow, DOMNodeCount: m.DOMNodeCount}, nil
}

func (sb *chromeSandbox) Screenshot(ctx context.Context) ([]byte, error) {
	return sb.page.Context(ctx).Screenshot(true, nil)
}

func (sb *chromeSandbox) ConsoleLines() []string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	out := make([]string, len(sb.console))
	copy(out, sb.console)
	return out
}

// Close tears the whole browser down. Errors from an already-dead browser are
// swallowed; the process kill is what guarantees release.
func (sb *chromeSandbox) Close() error {
	if sb.stopEvents != nil {
		sb.stopEvents()
	}
	_ = sb.page.Close()
	err := sb.browser.Close()
	sb.launcher.Kill()
	sb.launcher.Cleanup()
	return err
}

func stringifyConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}
