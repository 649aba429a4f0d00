package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
twilio:
  account_sid: AC123
  auth_token: tok
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal valid config gets defaults",
			yaml: minimalYAML,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "twilio-gw", cfg.Service.Name)
				assert.Equal(t, "info", cfg.Service.LogLevel)
				assert.Equal(t, "json", cfg.Service.LogFormat)
				assert.Equal(t, 30*time.Second, cfg.Twilio.Timeout)
				assert.Equal(t, "/message", cfg.Webhooks.MessagePath)
				assert.Equal(t, "/call", cfg.Webhooks.CallPath)
				assert.Equal(t, "You told me: '{{.Body}}'", cfg.Replies.Message)
				assert.True(t, cfg.Inbox.IsEnabled())
			},
		},
		{
			name: "full config",
			yaml: `
service:
  name: gw
  log_level: DEBUG
  log_format: text
twilio:
  account_sid: AC123
  auth_token: tok
  base_url: http://127.0.0.1:9999/Accounts
  timeout: 5s
webhooks:
  listen: 0.0.0.0:9000
  message_path: /sms
  call_path: /voice
  max_body_size: 64KB
  public_host: hooks.example.com
replies:
  message: ""
  call: Goodbye
  voice: alice
  language: en-GB
inbox:
  enabled: false
`,
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Service.LogLevel)
				assert.Equal(t, "text", cfg.Service.LogFormat)
				assert.Equal(t, 5*time.Second, cfg.Twilio.Timeout)
				assert.Equal(t, "/sms", cfg.Webhooks.MessagePath)
				assert.Equal(t, "64KB", cfg.Webhooks.MaxBodySize)
				assert.Equal(t, "hooks.example.com", cfg.Webhooks.PublicHost)
				assert.Empty(t, cfg.Replies.Message)
				assert.Equal(t, "alice", cfg.Replies.Voice)
				assert.False(t, cfg.Inbox.IsEnabled())
			},
		},
		{
			name: "env var interpolation",
			yaml: `
twilio:
  account_sid: ${TEST_TWILIO_SID}
  auth_token: ${TEST_TWILIO_TOKEN}
`,
			env: map[string]string{"TEST_TWILIO_SID": "AC999", "TEST_TWILIO_TOKEN": "secret"},
			checkFn: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "AC999", cfg.Twilio.AccountSID)
				assert.Equal(t, "secret", cfg.Twilio.AuthToken)
			},
		},
		{
			name: "missing env var fails validation",
			yaml: `
twilio:
  account_sid: AC1
  auth_token: ${TEST_TWILIO_MISSING}
`,
			wantErr: "${TEST_TWILIO_MISSING} is not set",
		},
		{
			name:    "missing auth token",
			yaml:    "twilio:\n  account_sid: AC1\n",
			wantErr: "twilio.auth_token is required",
		},
		{
			name:    "invalid log level",
			yaml:    minimalYAML + "service:\n  log_level: loud\n",
			wantErr: "service.log_level",
		},
		{
			name:    "invalid log format",
			yaml:    minimalYAML + "service:\n  log_format: xml\n",
			wantErr: "service.log_format",
		},
		{
			name:    "paths must differ",
			yaml:    minimalYAML + "webhooks:\n  message_path: /hook\n  call_path: /hook\n",
			wantErr: "must differ",
		},
		{
			name:    "path needs leading slash",
			yaml:    minimalYAML + "webhooks:\n  call_path: voice\n",
			wantErr: "webhooks.call_path must start with /",
		},
		{
			name:    "unresolved events token",
			yaml:    minimalYAML + "webhooks:\n  events_token: ${TEST_GW_EVENTS_MISSING}\n",
			wantErr: "webhooks.events_token",
		},
		{
			name:    "unknown key rejected",
			yaml:    minimalYAML + "plugins: {}\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.yaml), 0o644))

			cfg, err := Load(configPath)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, configPath, cfg.Path)
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(minimalYAML), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.Path)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "config.yaml not found")
}

func TestInterpolateEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "simple replacement",
			input: "path: ${TEST_GW_DIR}/data",
			env:   map[string]string{"TEST_GW_DIR": "/users/test"},
			want:  "path: /users/test/data",
		},
		{
			name:  "multiple vars",
			input: "${TEST_GW_USER}:${TEST_GW_PASS}",
			env:   map[string]string{"TEST_GW_USER": "admin", "TEST_GW_PASS": "secret"},
			want:  "admin:secret",
		},
		{
			name:  "undefined var unchanged",
			input: "key: ${TEST_GW_UNDEFINED}",
			want:  "key: ${TEST_GW_UNDEFINED}",
		},
		{
			name:  "no vars",
			input: "plain text",
			want:  "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, interpolateEnv(tt.input))
		})
	}
}

func TestDiscoverConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))
	t.Setenv(EnvConfigPath, path)

	got, err := DiscoverConfigPath()
	require.NoError(t, err)
	assert.Equal(t, path, got)
}
