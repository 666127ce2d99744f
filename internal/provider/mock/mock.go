// Package mock provides a scripted provider for tests and local development.
package mock

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dom/imagify/internal/provider"
)

// Provider replays configured results. Without a script every call returns a
// small generated PNG.
type Provider struct {
	model   string
	latency time.Duration
	hook    func(ctx context.Context, prompt string)

	mu     sync.Mutex
	script []provider.Result
	calls  atomic.Int64
}

var _ provider.Provider = (*Provider)(nil)

// Option configures the mock provider.
type Option func(*Provider)

// WithResults queues results returned in order. Once exhausted the default
// image is returned.
func WithResults(results ...provider.Result) Option {
	return func(p *Provider) { p.script = append(p.script, results...) }
}

// WithLatency delays each call, honouring the call timeout.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithHook runs fn at the start of every call. Tests use it to hold calls at
// a barrier.
func WithHook(fn func(ctx context.Context, prompt string)) Option {
	return func(p *Provider) { p.hook = fn }
}

// WithModel sets the reported model name.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

func New(opts ...Option) *Provider {
	p := &Provider{model: "mock-image-1"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string  { return "mock" }
func (p *Provider) Model() string { return p.model }

// Calls reports how many times Invoke ran.
func (p *Provider) Calls() int {
	return int(p.calls.Load())
}

func (p *Provider) Invoke(ctx context.Context, prompt string, timeout time.Duration) provider.Result {
	p.calls.Add(1)
	start := time.Now()

	if p.hook != nil {
		p.hook(ctx, prompt)
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		select {
		case <-timer.C:
		case <-deadline.C:
			return provider.Result{Kind: provider.KindTimeout, Latency: time.Since(start)}
		case <-ctx.Done():
			return provider.Result{Kind: provider.KindTimeout, Latency: time.Since(start)}
		}
	}

	res := p.next()
	res.Latency = time.Since(start)
	return res
}

func (p *Provider) next() provider.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.script) == 0 {
		return provider.Image(SamplePNG(), "image/png")
	}
	res := p.script[0]
	p.script = p.script[1:]
	return res
}

// SamplePNG returns a valid 8x8 PNG.
func SamplePNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
