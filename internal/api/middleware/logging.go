package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type logFieldsKey struct{}

// logFields lets handlers deeper in the chain report the account a request
// was made for.
type logFields struct {
	mu        sync.Mutex
	accountID uuid.UUID
}

func setLoggedAccount(ctx context.Context, accountID uuid.UUID) {
	if f, ok := ctx.Value(logFieldsKey{}).(*logFields); ok {
		f.mu.Lock()
		f.accountID = accountID
		f.mu.Unlock()
	}
}

// Logging writes one structured entry per request.
func Logging(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			fields := &logFields{}
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, fields)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if reqID := chiMiddleware.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			fields.mu.Lock()
			if fields.accountID != uuid.Nil {
				attrs = append(attrs, slog.String("account_id", fields.accountID.String()))
			}
			fields.mu.Unlock()

			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}
