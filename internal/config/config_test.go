package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, "./data/yamdb.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "console", cfg.MailBackend)
	assert.Equal(t, 25, cfg.SMTPPort)
	assert.True(t, cfg.InsecureSecret())
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"HTTP_ADDR":        ":9000",
		"GRPC_ADDR":        "",
		"JWT_SECRET":       "s3cret",
		"ACCESS_TOKEN_TTL": "15m",
		"PAGE_SIZE":        "25",
		"MAIL_BACKEND":     "smtp",
		"SMTP_HOST":        "mail.local",
		"SMTP_PORT":        "587",
		"LOG_FORMAT":       "json",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "", cfg.GRPCAddr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.False(t, cfg.InsecureSecret())
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad ttl", map[string]string{"ACCESS_TOKEN_TTL": "soon"}},
		{"negative ttl", map[string]string{"ACCESS_TOKEN_TTL": "-1h"}},
		{"bad page size", map[string]string{"PAGE_SIZE": "0"}},
		{"bad smtp port", map[string]string{"SMTP_PORT": "x"}},
		{"smtp without host", map[string]string{"MAIL_BACKEND": "smtp"}},
		{"unknown backend", map[string]string{"MAIL_BACKEND": "pigeon"}},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"empty secret", map[string]string{"JWT_SECRET": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			assert.Error(t, err)
		})
	}
}
