package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	AccountIDKey contextKey = "accountID"
)

// TokenValidator resolves an access token to the account it was issued for.
type TokenValidator interface {
	AccountIDFromToken(token string) (uuid.UUID, error)
}

// Auth rejects requests without a valid access token before they reach next.
// The token comes from "Authorization: Bearer <token>" or, for older clients,
// a bare "token" header.
func Auth(tokens TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				WriteUnauthenticated(w, "Not authorized, login again")
				return
			}

			accountID, err := tokens.AccountIDFromToken(token)
			if err != nil {
				logger.Warn("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteUnauthenticated(w, "Not authorized, login again")
				return
			}

			setLoggedAccount(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ContextWithAccountID(r.Context(), accountID)))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}

	token := strings.TrimSpace(r.Header.Get("token"))
	return token, token != ""
}

func ContextWithAccountID(ctx context.Context, accountID uuid.UUID) context.Context {
	return context.WithValue(ctx, AccountIDKey, accountID)
}

func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(uuid.UUID)
	return accountID, ok
}
