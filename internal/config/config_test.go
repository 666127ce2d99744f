package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("HF_API_KEY", "hf_test")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 168, cfg.JWTExpirationHours)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiration())
	assert.Equal(t, 5, cfg.StartingCredits)
	assert.Equal(t, 1000, cfg.MaxPromptLength)
	assert.Equal(t, 120*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, ProviderHuggingFace, cfg.Provider)
	assert.Equal(t, ImageStoreInline, cfg.ImageStore)
	assert.Equal(t, LedgerPostgres, cfg.LedgerBackend)
	assert.Len(t, cfg.Plans, 3)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing jwt secret",
			env:     map[string]string{"JWT_SECRET": "", "HF_API_KEY": "k"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "huggingface without key",
			env:     map[string]string{"JWT_SECRET": "s", "HF_API_KEY": ""},
			wantErr: "HF_API_KEY",
		},
		{
			name:    "mock provider needs no key",
			env:     map[string]string{"JWT_SECRET": "s", "HF_API_KEY": "", "PROVIDER": "mock"},
			wantErr: "",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"JWT_SECRET": "s", "PROVIDER": "dalle"},
			wantErr: "unknown PROVIDER",
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"JWT_SECRET": "s", "HF_API_KEY": "k", "IMAGE_STORE": "s3"},
			wantErr: "S3_BUCKET",
		},
		{
			name:    "redis ledger without address",
			env:     map[string]string{"JWT_SECRET": "s", "HF_API_KEY": "k", "LEDGER_BACKEND": "redis"},
			wantErr: "REDIS_ADDR",
		},
		{
			name:    "non-positive image size cap",
			env:     map[string]string{"JWT_SECRET": "s", "HF_API_KEY": "k", "PROVIDER_MAX_IMAGE_BYTES": "0"},
			wantErr: "PROVIDER_MAX_IMAGE_BYTES",
		},
		{
			name:    "non-positive prompt length",
			env:     map[string]string{"JWT_SECRET": "s", "HF_API_KEY": "k", "MAX_PROMPT_LENGTH": "0"},
			wantErr: "MAX_PROMPT_LENGTH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "duration string", value: "90s", want: 90 * time.Second},
		{name: "bare seconds", value: "30", want: 30 * time.Second},
		{name: "garbage falls back", value: "soon", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestLoadPlans(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "plans.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`
plans:
  - id: starter
    name: Starter
    credits: 3
  - id: pro
    name: Pro
    credits: ${PRO_CREDITS}
`), 0o600))
	t.Setenv("PRO_CREDITS", "40")

	plans, err := LoadPlans(valid)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "starter", plans[0].ID)
	assert.Equal(t, 40, plans[1].Credits)

	invalid := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`
plans:
  - id: free
    credits: 0
`), 0o600))

	_, err = LoadPlans(invalid)
	assert.Error(t, err)

	_, err = LoadPlans(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_PlansFile(t *testing.T) {
	setBaseEnv(t)

	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plans:\n  - id: solo\n    credits: 1\n"), 0o600))
	t.Setenv("PLANS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Plans, 1)
	assert.Equal(t, "solo", cfg.Plans[0].ID)
}
