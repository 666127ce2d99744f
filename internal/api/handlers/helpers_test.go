package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type generateResponse struct {
	Success       bool   `json:"success"`
	GenerationID  string `json:"generationId"`
	ImageURL      string `json:"imageUrl"`
	CreditBalance int    `json:"creditBalance"`
	Recorded      bool   `json:"recorded"`
}

type generationJSON struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	Prompt    string `json:"prompt"`
	ImageURL  string `json:"imageUrl"`
	Provider  string `json:"provider"`
}

type listResponse struct {
	Success           bool             `json:"success"`
	TotalGenerations  int64            `json:"totalGenerations"`
	RecentGenerations []generationJSON `json:"recentGenerations"`
}

type balanceResponse struct {
	Success bool `json:"success"`
	Credits int  `json:"credits"`
	User    struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}
