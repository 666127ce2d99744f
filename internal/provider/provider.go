// Package provider defines the boundary to external text-to-image services.
//
// An adapter turns one outbound call into exactly one Result. Downstream code
// switches on Result.Kind and never inspects raw responses again.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Provider is implemented by text-to-image adapters. Invoke performs a single
// attempt bounded by timeout; adapters never retry.
type Provider interface {
	// Name returns the provider identifier (e.g. "huggingface").
	Name() string

	// Model returns the model the provider is configured to call.
	Model() string

	Invoke(ctx context.Context, prompt string, timeout time.Duration) Result
}

// Kind enumerates the possible outcomes of a provider call.
type Kind int

const (
	KindImage Kind = iota + 1
	KindUpstreamError
	KindTimeout
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindUpstreamError:
		return "upstream_error"
	case KindTimeout:
		return "timeout"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the classified outcome of a provider call. Only the fields that
// belong to Kind are set.
type Result struct {
	Kind Kind

	// KindImage
	Image       []byte
	ContentType string

	// KindUpstreamError
	Message string

	// KindTransportFailure
	Err error

	Latency time.Duration
}

func Image(data []byte, contentType string) Result {
	return Result{Kind: KindImage, Image: data, ContentType: contentType}
}

func UpstreamError(message string) Result {
	return Result{Kind: KindUpstreamError, Message: message}
}

func Timeout() Result {
	return Result{Kind: KindTimeout}
}

func TransportFailure(err error) Result {
	return Result{Kind: KindTransportFailure, Err: err}
}
