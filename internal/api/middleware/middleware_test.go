package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dom/imagify/internal/logger"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	tokens map[string]uuid.UUID
}

func (f fakeValidator) AccountIDFromToken(token string) (uuid.UUID, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("token is expired")
}

func TestAuth(t *testing.T) {
	accountID := uuid.New()
	validator := fakeValidator{tokens: map[string]uuid.UUID{"good": accountID}}

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "bearer token", headers: map[string]string{"Authorization": "Bearer good"}, wantStatus: http.StatusOK},
		{name: "lower-case scheme", headers: map[string]string{"Authorization": "bearer good"}, wantStatus: http.StatusOK},
		{name: "legacy token header", headers: map[string]string{"token": "good"}, wantStatus: http.StatusOK},
		{name: "missing", headers: nil, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", headers: map[string]string{"Authorization": "Basic good"}, wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", headers: map[string]string{"Authorization": "Bearer "}, wantStatus: http.StatusUnauthorized},
		{name: "rejected token", headers: map[string]string{"Authorization": "Bearer expired"}, wantStatus: http.StatusUnauthorized},
		{name: "bad authorization wins over token header", headers: map[string]string{"Authorization": "Bearer expired", "token": "good"}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := GetAccountID(r.Context())
				assert.True(t, ok)
				assert.Equal(t, accountID, id)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			Auth(validator, logger.Discard())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)

			if tt.wantStatus == http.StatusUnauthorized {
				var body ErrorResponseBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.False(t, body.Success)
				assert.Equal(t, "UNAUTHENTICATED", body.Code)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	})

	rec := httptest.NewRecorder()
	CORS("https://app.example.com")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/images/generate", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "token")
}

func TestLogging_RecordsRequest(t *testing.T) {
	var buf bytes.Buffer
	log := logger.Setup(&buf, "info")
	accountID := uuid.New()
	validator := fakeValidator{tokens: map[string]uuid.UUID{"good": accountID}}

	handler := chiMiddleware.RequestID(Logging(log)(Auth(validator, logger.Discard())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
		}),
	)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/generate", nil)
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/v1/images/generate", entry["path"])
	assert.Equal(t, float64(http.StatusPaymentRequired), entry["status"])
	assert.Equal(t, accountID.String(), entry["account_id"])
	assert.NotEmpty(t, entry["request_id"])
	assert.Contains(t, entry, "duration_ms")
}
