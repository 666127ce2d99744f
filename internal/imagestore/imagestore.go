// Package imagestore persists generated images and resolves them to URLs a
// client can fetch.
package imagestore

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// Store saves image bytes and returns an opaque reference kept on the
// generation record.
type Store interface {
	Put(ctx context.Context, accountID, generationID uuid.UUID, contentType string, data []byte) (string, error)
	URL(ctx context.Context, ref string) (string, error)
}

// DataURL encodes data as a base64 data URL.
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "image/png"
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(contentType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// Inline keeps the image in the record itself as a data URL.
type Inline struct{}

var _ Store = Inline{}

func NewInline() Inline { return Inline{} }

func (Inline) Put(_ context.Context, _, _ uuid.UUID, contentType string, data []byte) (string, error) {
	return DataURL(contentType, data), nil
}

func (Inline) URL(_ context.Context, ref string) (string, error) {
	return ref, nil
}
