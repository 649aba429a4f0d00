package config

import "time"

// Config represents the complete twilio-gw configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Replies  RepliesConfig  `yaml:"replies"`
	Inbox    InboxConfig    `yaml:"inbox"`

	// Path is the absolute file the config was loaded from.
	Path string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// PIDFile guards against two gateways sharing one inbox.
	PIDFile string `yaml:"pid_file"`
}

// TwilioConfig holds REST API credentials. AuthToken also keys webhook signatures.
type TwilioConfig struct {
	AccountSID string        `yaml:"account_sid"`
	AuthToken  string        `yaml:"auth_token"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WebhooksConfig defines webhook listener settings.
type WebhooksConfig struct {
	Listen      string `yaml:"listen"`
	MessagePath string `yaml:"message_path"`
	CallPath    string `yaml:"call_path"`
	MaxBodySize string `yaml:"max_body_size"`
	PublicHost  string `yaml:"public_host"`
	// EventsToken enables GET /events (Server-Sent Events) for this bearer token.
	EventsToken string `yaml:"events_token"`
}

// RepliesConfig holds the reply templates rendered into TwiML.
type RepliesConfig struct {
	Message  string `yaml:"message"`
	Call     string `yaml:"call"`
	Voice    string `yaml:"voice"`
	Language string `yaml:"language"`
}

// InboxConfig defines where accepted deliveries are stored.
type InboxConfig struct {
	Path    string `yaml:"path"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the inbox is on. It defaults to true.
func (c InboxConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "twilio-gw",
			LogLevel:  "info",
			LogFormat: "json",
			PIDFile:   "./data/twilio-gw.pid",
		},
		Twilio: TwilioConfig{
			BaseURL: "https://api.twilio.com/2010-04-01/Accounts",
			Timeout: 30 * time.Second,
		},
		Webhooks: WebhooksConfig{
			Listen:      "127.0.0.1:8081",
			MessagePath: "/message",
			CallPath:    "/call",
			MaxBodySize: "1MB",
		},
		Replies: RepliesConfig{
			Message:  "You told me: '{{.Body}}'",
			Call:     "Thanks for using twilio-gw. Bye!",
			Voice:    "woman",
			Language: "en",
		},
		Inbox: InboxConfig{
			Path: "./data/inbox.db",
		},
	}
}
