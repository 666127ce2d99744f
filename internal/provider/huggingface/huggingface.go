// Package huggingface calls the Hugging Face inference API for text-to-image
// models.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dom/imagify/internal/provider"
)

const (
	DefaultBaseURL = "https://router.huggingface.co/hf-inference"
	DefaultModel   = "black-forest-labs/FLUX.1-schnell"

	defaultMaxImageBytes = 20 << 20
	maxMessageLen        = 512
)

// Provider is a Hugging Face text-to-image adapter.
type Provider struct {
	baseURL       string
	model         string
	apiKey        string
	httpClient    *http.Client
	maxImageBytes int64
}

var _ provider.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client. Its Timeout should be zero or
// larger than any timeout passed to Invoke.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithBaseURL overrides the inference endpoint root.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithModel sets the model repository id.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithMaxImageBytes caps the accepted response size.
func WithMaxImageBytes(n int64) Option {
	return func(p *Provider) { p.maxImageBytes = n }
}

// New creates a provider authenticating with apiKey.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:       DefaultBaseURL,
		model:         DefaultModel,
		apiKey:        apiKey,
		httpClient:    &http.Client{},
		maxImageBytes: defaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string  { return "huggingface" }
func (p *Provider) Model() string { return p.model }

type apiRequest struct {
	Inputs string `json:"inputs"`
}

// Invoke posts the prompt and classifies the reply by its declared content
// type. Status codes are not consulted: the API sometimes returns an image
// with a non-200 status and JSON errors with 200.
func (p *Provider) Invoke(ctx context.Context, prompt string, timeout time.Duration) provider.Result {
	start := time.Now()
	res := p.invoke(ctx, prompt, timeout)
	res.Latency = time.Since(start)
	return res
}

func (p *Provider) invoke(ctx context.Context, prompt string, timeout time.Duration) provider.Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(apiRequest{Inputs: prompt})
	if err != nil {
		return provider.TransportFailure(fmt.Errorf("huggingface: marshal request: %w", err))
	}

	url := p.baseURL + "/models/" + p.model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return provider.TransportFailure(fmt.Errorf("huggingface: create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/png")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxImageBytes+1))
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	if int64(len(data)) > p.maxImageBytes {
		return provider.TransportFailure(fmt.Errorf("huggingface: response exceeds %d bytes", p.maxImageBytes))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(strings.ToLower(contentType), "image") {
		return provider.Image(data, mediaType(contentType))
	}

	return provider.UpstreamError(extractMessage(resp.StatusCode, data))
}

func classifyTransportError(ctx context.Context, err error) provider.Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return provider.Timeout()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return provider.Timeout()
	}
	return provider.TransportFailure(err)
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mt)
}

// extractMessage pulls a readable message out of an error body without
// guessing at its cause.
func extractMessage(status int, body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := rawString(payload.Error); msg != "" {
			return truncate(msg)
		}
		if payload.Message != "" {
			return truncate(payload.Message)
		}
		if payload.Detail != "" {
			return truncate(payload.Detail)
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text)
	}
	return fmt.Sprintf("provider returned status %d without an image", status)
}

// rawString accepts both "error": "text" and "error": ["a", "b"].
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return string(raw)
}

// truncate caps s at maxMessageLen bytes. Invalid UTF-8 is replaced first so
// only the rune split by the cut is dropped.
func truncate(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= maxMessageLen {
		return s
	}
	s = s[:maxMessageLen]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s + "…"
}
