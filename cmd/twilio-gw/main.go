package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/twilio-gw/internal/config"
	"github.com/mattjoyce/twilio-gw/internal/events"
	"github.com/mattjoyce/twilio-gw/internal/inbox"
	"github.com/mattjoyce/twilio-gw/internal/lock"
	"github.com/mattjoyce/twilio-gw/internal/log"
	"github.com/mattjoyce/twilio-gw/internal/storage"
	"github.com/mattjoyce/twilio-gw/internal/webhook"
)

const version = "0.2.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	// --- NOUNS ---
	case "message":
		return runMessageNoun(rest)
	case "call":
		return runCallNoun(rest)
	case "inbox":
		return runInboxNoun(rest)

	// --- VERBS ---
	case "serve":
		if hasHelpFlag(rest) {
			printServeHelp()
			return 0
		}
		return runServe(rest)
	case "sign":
		if hasHelpFlag(rest) {
			printSignHelp()
			return 0
		}
		return runSign(rest)
	case "version":
		fmt.Printf("twilio-gw version %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`twilio-gw - Twilio REST client and signed webhook gateway

Usage:
  twilio-gw <noun> <action> [flags]
  twilio-gw <command> [flags]

Core Resources (Nouns):
  message   Outbound SMS/MMS
  call      Outbound voice calls
  inbox     Deliveries accepted by the webhook gateway

Message Commands:
  message send      Send a message (--to, --from, --body, --media)
  message get <sid> Fetch a message

Call Commands:
  call create       Place a call (--to, --from, --url or --twiml)
  call get <sid>    Fetch a call
  call update <sid> Redirect or end a live call
  call hangup <sid> End a live call

Inbox Commands:
  inbox list        List recent deliveries (--kind, --limit)
  inbox show <id>   Show one delivery with all its fields

Commands:
  serve             Run the webhook gateway in the foreground
  sign              Compute an X-Twilio-Signature value
  version           Show version information
  help              Show this help message

Credentials come from --config (see 'serve') or from
TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN when no config is found.

Use 'twilio-gw <noun> help' for resource-specific flags.
`)
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printServeHelp() {
	fmt.Println("Usage: twilio-gw serve [--config PATH]")
	fmt.Println("Starts the webhook gateway. Config is discovered from $" + config.EnvConfigPath +
		", ~/.config/twilio-gw, /etc/twilio-gw or ./config.yaml when --config is omitted.")
}

// loadConfig loads an explicit path or discovers one.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = discovered
	}
	return config.Load(configPath)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("twilio-gw starting", "version", version, "config", cfg.Path)

	if cfg.Service.PIDFile != "" {
		pidLock, err := lock.Acquire(cfg.Service.PIDFile)
		if err != nil {
			logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.Service.PIDFile, "error", err)
			return 1
		}
		defer pidLock.Release()
		logger.Info("acquired PID lock", "path", pidLock.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var recorder webhook.Recorder
	if cfg.Inbox.IsEnabled() {
		db, err := storage.OpenSQLite(ctx, cfg.Inbox.Path)
		if err != nil {
			logger.Error("failed to open inbox database", "path", cfg.Inbox.Path, "error", err)
			return 1
		}
		defer db.Close()
		recorder = inbox.New(db)
		logger.Info("inbox opened", "path", cfg.Inbox.Path)
	}

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhooks", "error", err)
		return 1
	}
	server, err := webhook.New(webhookConfig, webhook.NewAuthenticator(cfg.Twilio.AuthToken), recorder, log.WithComponent("webhook"))
	if err != nil {
		logger.Error("failed to build webhook server", "error", err)
		return 1
	}
	if webhookConfig.EventsToken != "" {
		server.WithEvents(events.NewHub(events.DefaultCapacity))
		logger.Info("delivery event stream enabled", "path", "/events")
	}

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("webhook server stopped", "error", err)
		return 1
	}
	logger.Info("twilio-gw stopped")
	return 0
}
