package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/twilio-gw/internal/config"
)

func TestFromGlobalConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Webhooks.MaxBodySize = "64KB"
	cfg.Webhooks.PublicHost = "hooks.example.com"
	cfg.Replies.Voice = "alice"

	wc, err := FromGlobalConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8081", wc.Listen)
	assert.Equal(t, "/message", wc.MessagePath)
	assert.Equal(t, "/call", wc.CallPath)
	assert.Equal(t, int64(64*1024), wc.MaxBodySize)
	assert.Equal(t, "hooks.example.com", wc.PublicHost)
	assert.Equal(t, "alice", wc.Replies.Voice)
	assert.Equal(t, cfg.Replies.Message, wc.Replies.Message)
}

func TestFromGlobalConfigErrors(t *testing.T) {
	_, err := FromGlobalConfig(nil)
	assert.Error(t, err)

	cfg := config.Defaults()
	cfg.Webhooks.MaxBodySize = "lots"
	_, err = FromGlobalConfig(cfg)
	assert.ErrorContains(t, err, "max_body_size")
}

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", DefaultMaxBodySize, false},
		{"2048", 2048, false},
		{"1KB", 1024, false},
		{"2mb", 2 * 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMaxBodySize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
