package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/twilio-gw/internal/config"
)

// FromGlobalConfig converts the gateway config into a webhook.Config,
// parsing the human-readable max body size.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}
	wc := cfg.Webhooks

	maxBodySize, err := parseMaxBodySize(wc.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("webhooks: invalid max_body_size %q: %w", wc.MaxBodySize, err)
	}

	return Config{
		Listen:      wc.Listen,
		MessagePath: wc.MessagePath,
		CallPath:    wc.CallPath,
		MaxBodySize: maxBodySize,
		PublicHost:  wc.PublicHost,
		EventsToken: wc.EventsToken,
		Replies: ReplyConfig{
			Message:  cfg.Replies.Message,
			Call:     cfg.Replies.Call,
			Voice:    cfg.Replies.Voice,
			Language: cfg.Replies.Language,
		},
	}, nil
}

// parseMaxBodySize parses size strings like "1MB", "2048576", "1048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	// Handle unit suffixes (KB, MB, GB)
	upper := strings.ToUpper(size)
	multiplier := int64(1)

	if strings.HasSuffix(upper, "KB") {
		multiplier = 1024
		size = strings.TrimSuffix(upper, "KB")
	} else if strings.HasSuffix(upper, "MB") {
		multiplier = 1024 * 1024
		size = strings.TrimSuffix(upper, "MB")
	} else if strings.HasSuffix(upper, "GB") {
		multiplier = 1024 * 1024 * 1024
		size = strings.TrimSuffix(upper, "GB")
	}

	// Parse numeric value
	value, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result < 0 { // Check for overflow
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
