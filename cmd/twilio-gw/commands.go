package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/mattjoyce/twilio-gw/internal/config"
	"github.com/mattjoyce/twilio-gw/internal/inbox"
	"github.com/mattjoyce/twilio-gw/internal/log"
	"github.com/mattjoyce/twilio-gw/internal/storage"
	"github.com/mattjoyce/twilio-gw/internal/twilio"
	"github.com/mattjoyce/twilio-gw/internal/webhook"
)

// Environment fallbacks used when no config file is found.
const (
	envAccountSID = "TWILIO_ACCOUNT_SID"
	envAuthToken  = "TWILIO_AUTH_TOKEN"
	envBaseURL    = "TWILIO_BASE_URL"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// splitPositional lets "get SID --json" and "get --json SID" both work.
func splitPositional(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

// --- NOUN DISPATCHERS ---

func runMessageNoun(args []string) int {
	if len(args) < 1 {
		printMessageNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printMessageNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "send":
		return runMessageSend(actionArgs)
	case "get":
		return runMessageGet(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown message action: %s\n", action)
		return 1
	}
}

func runCallNoun(args []string) int {
	if len(args) < 1 {
		printCallNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printCallNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "create":
		return runCallCreate(actionArgs)
	case "get":
		return runCallGet(actionArgs)
	case "update":
		return runCallUpdate(actionArgs)
	case "hangup":
		return runCallHangup(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown call action: %s\n", action)
		return 1
	}
}

func runInboxNoun(args []string) int {
	if len(args) < 1 {
		printInboxNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printInboxNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "list":
		return runInboxList(actionArgs)
	case "show":
		return runInboxShow(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown inbox action: %s\n", action)
		return 1
	}
}

func printMessageNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: twilio-gw message <action> [flags]")
	fmt.Fprintln(w, "Actions: send, get")
	fmt.Fprintln(w, "  send --to N --from N (--body TEXT | --media URL...) [--status-callback URL] [--messaging-service SID]")
	fmt.Fprintln(w, "  get <sid>")
	fmt.Fprintln(w, "Common flags: --config PATH, --json")
}

func printCallNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: twilio-gw call <action> [flags]")
	fmt.Fprintln(w, "Actions: create, get, update, hangup")
	fmt.Fprintln(w, "  create --to N --from N (--url URL | --twiml XML) [--method M] [--timeout S] [--status-callback URL]")
	fmt.Fprintln(w, "  get <sid>")
	fmt.Fprintln(w, "  update <sid> [--status completed|canceled] [--url URL | --twiml XML] [--method M]")
	fmt.Fprintln(w, "  hangup <sid>")
	fmt.Fprintln(w, "Common flags: --config PATH, --json")
}

func printInboxNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: twilio-gw inbox <action> [flags]")
	fmt.Fprintln(w, "Actions: list, show")
	fmt.Fprintln(w, "  list [--kind message|call] [--limit N]")
	fmt.Fprintln(w, "  show <id>")
	fmt.Fprintln(w, "Common flags: --config PATH, --json")
}

func printSignHelp() {
	fmt.Println("Usage: twilio-gw sign --url URL [--method POST|GET] [--token TOKEN] [key=value ...]")
	fmt.Println("Prints the X-Twilio-Signature Twilio would send for the request.")
	fmt.Println("For POST the key=value pairs are the form fields, in order.")
}

// --- CLIENT SETUP ---

type commonFlags struct {
	configPath *string
	jsonOut    *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "Path to configuration file or directory"),
		jsonOut:    fs.Bool("json", false, "Print the result as JSON"),
	}
}

// newClient builds a REST client from config, falling back to the
// environment when no config is given or discovered.
func newClient(configPath string) (*twilio.Client, error) {
	logger := log.New(os.Stderr, "warn", "text").With("component", "twilio")

	if configPath == "" {
		if _, err := config.DiscoverConfigPath(); err != nil {
			sid, token := os.Getenv(envAccountSID), os.Getenv(envAuthToken)
			if sid == "" || token == "" {
				return nil, fmt.Errorf("no config found and %s/%s are not set", envAccountSID, envAuthToken)
			}
			return twilio.New(sid, token,
				twilio.WithBaseURL(os.Getenv(envBaseURL)),
				twilio.WithHTTPClient(&http.Client{Timeout: twilio.DefaultTimeout}),
				twilio.WithLogger(logger),
			), nil
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger = log.New(os.Stderr, cfg.Service.LogLevel, "text").With("component", "twilio")
	return twilio.New(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken,
		twilio.WithBaseURL(cfg.Twilio.BaseURL),
		twilio.WithHTTPClient(&http.Client{Timeout: cfg.Twilio.Timeout}),
		twilio.WithLogger(logger),
	), nil
}

func openInbox(ctx context.Context, configPath string) (*inbox.Inbox, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Inbox.IsEnabled() {
		return nil, nil, fmt.Errorf("inbox is disabled in %s", cfg.Path)
	}
	db, err := storage.OpenSQLite(ctx, cfg.Inbox.Path)
	if err != nil {
		return nil, nil, err
	}
	return inbox.New(db), func() { _ = db.Close() }, nil
}

// --- OUTPUT ---

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		return 1
	}
	return 0
}

func printMessage(m *twilio.Message, asJSON bool) int {
	if asJSON {
		return printJSON(m)
	}
	fmt.Printf("%s\t%s\t%s -> %s\t%q\n", m.SID, m.Status, m.From, m.To, m.Body)
	if m.ErrorCode != nil {
		fmt.Printf("error %d", *m.ErrorCode)
		if m.ErrorMessage != nil {
			fmt.Printf(": %s", *m.ErrorMessage)
		}
		fmt.Println()
	}
	return 0
}

func printCall(c *twilio.Call, asJSON bool) int {
	if asJSON {
		return printJSON(c)
	}
	fmt.Printf("%s\t%s\t%s -> %s", c.SID, c.Status, c.From, c.To)
	if c.Duration != "" {
		fmt.Printf("\t%ss", c.Duration)
	}
	fmt.Println()
	return 0
}

// reportAPIError prints err with the HTTP status when the API returned one.
func reportAPIError(action string, err error) int {
	var httpErr *twilio.HTTPError
	switch {
	case errors.As(err, &httpErr):
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", action, httpErr)
	case errors.Is(err, twilio.ErrInvalidParams):
		fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	default:
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", action, err)
	}
	return 1
}

// --- MESSAGE ---

func runMessageSend(args []string) int {
	fs := flag.NewFlagSet("message send", flag.ContinueOnError)
	common := addCommonFlags(fs)
	to := fs.String("to", "", "Destination number")
	from := fs.String("from", "", "Sender number")
	body := fs.String("body", "", "Message text")
	statusCallback := fs.String("status-callback", "", "URL for delivery status callbacks")
	service := fs.String("messaging-service", "", "Messaging service SID")
	var media stringList
	fs.Var(&media, "media", "Media URL (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	client, err := newClient(*common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure client: %v\n", err)
		return 1
	}

	msg, err := client.SendMessage(context.Background(), twilio.OutboundMessage{
		To:                  *to,
		From:                *from,
		MessagingServiceSID: *service,
		Body:                *body,
		MediaURL:            media,
		StatusCallback:      *statusCallback,
	})
	if err != nil {
		return reportAPIError("message send", err)
	}
	return printMessage(msg, *common.jsonOut)
}

func runMessageGet(args []string) int {
	sid, args := splitPositional(args)
	fs := flag.NewFlagSet("message get", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if sid == "" {
		sid = fs.Arg(0)
	}
	if sid == "" {
		fmt.Fprintln(os.Stderr, "Usage: twilio-gw message get <sid>")
		return 1
	}

	client, err := newClient(*common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure client: %v\n", err)
		return 1
	}
	msg, err := client.FetchMessage(context.Background(), sid)
	if err != nil {
		return reportAPIError("message get", err)
	}
	return printMessage(msg, *common.jsonOut)
}

// --- CALL ---

func runCallCreate(args []string) int {
	fs := flag.NewFlagSet("call create", flag.ContinueOnError)
	common := addCommonFlags(fs)
	to := fs.String("to", "", "Destination number")
	from := fs.String("from", "", "Caller number")
	callURL := fs.String("url", "", "URL returning TwiML for the call")
	markup := fs.String("twiml", "", "Inline TwiML for the call")
	method := fs.String("method", "", "HTTP method Twilio uses for --url")
	timeout := fs.Int("timeout", 0, "Seconds to let the call ring")
	statusCallback := fs.String("status-callback", "", "URL for call status callbacks")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	client, err := newClient(*common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure client: %v\n", err)
		return 1
	}

	call, err := client.MakeCall(context.Background(), twilio.OutboundCall{
		To:             *to,
		From:           *from,
		URL:            *callURL,
		Twiml:          *markup,
		Method:         *method,
		StatusCallback: *statusCallback,
		Timeout:        *timeout,
	})
	if err != nil {
		return reportAPIError("call create", err)
	}
	return printCall(call, *common.jsonOut)
}

func runCallGet(args []string) int {
	sid, args := splitPositional(args)
	fs := flag.NewFlagSet("call get", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if sid == "" {
		sid = fs.Arg(0)
	}
	if sid == "" {
		fmt.Fprintln(os.Stderr, "Usage: twilio-gw call get <sid>")
		return 1
	}

	client, err := newClient(*common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure client: %v\n", err)
		return 1
	}
	call, err := client.FetchCall(context.Background(), sid)
	if err != nil {
		return reportAPIError("call get", err)
	}
	return printCall(call, *common.jsonOut)
}

func runCallUpdate(args []string) int {
	sid, args := splitPositional(args)
	fs := flag.NewFlagSet("call update", flag.ContinueOnError)
	common := addCommonFlags(fs)
	status := fs.String("status", "", "New status: completed or canceled")
	callURL := fs.String("url", "", "URL returning new TwiML")
	markup := fs.String("twiml", "", "Inline TwiML to execute now")
	method := fs.String("method", "", "HTTP method Twilio uses for --url")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if sid == "" {
		sid = fs.Arg(0)
	}
	if sid == "" {
		fmt.Fprintln(os.Stderr, "Usage: twilio-gw call update <sid> [flags]")
		return 1
	}

	client, err := newClient(*common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure client: %v\n", err)
		return 1
	}
	call, err := client.UpdateCall(context.Background(), sid, twilio.CallUpdate{
		Status: *status,
		URL:    *callURL,
		Twiml:  *markup,
		Method: *method,
	})
	if err != nil {
		return reportAPIError("call update", err)
	}
	return printCall(call, *common.jsonOut)
}

func runCallHangup(args []string) int {
	sid, args := splitPositional(args)
	fs := flag.NewFlagSet("call hangup", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if sid == "" {
		sid = fs.Arg(0)
	}
	if sid == "" {
		fmt.Fprintln(os.Stderr, "Usage: twilio-gw call hangup <sid>")
		return 1
	}

	client, err := newClient(*common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure client: %v\n", err)
		return 1
	}
	call, err := client.HangupCall(context.Background(), sid)
	if err != nil {
		return reportAPIError("call hangup", err)
	}
	return printCall(call, *common.jsonOut)
}

// --- INBOX ---

func runInboxList(args []string) int {
	fs := flag.NewFlagSet("inbox list", flag.ContinueOnError)
	common := addCommonFlags(fs)
	kind := fs.String("kind", "", "Filter by kind: message or call")
	limit := fs.Int("limit", inbox.DefaultListLimit, "Maximum entries to show")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	switch inbox.Kind(*kind) {
	case "", inbox.KindMessage, inbox.KindCall:
	default:
		fmt.Fprintf(os.Stderr, "Unknown kind %q (want message or call)\n", *kind)
		return 1
	}

	ctx := context.Background()
	ib, closeDB, err := openInbox(ctx, *common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open inbox: %v\n", err)
		return 1
	}
	defer closeDB()

	entries, err := ib.List(ctx, inbox.ListFilter{Kind: inbox.Kind(*kind), Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list inbox: %v\n", err)
		return 1
	}
	if *common.jsonOut {
		if entries == nil {
			entries = []*inbox.Entry{}
		}
		return printJSON(entries)
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\t%s\t%s -> %s\n",
			e.ID, e.ReceivedAt.Local().Format("2006-01-02 15:04:05"), e.Kind, e.SID, e.From, e.To)
	}
	return 0
}

func runInboxShow(args []string) int {
	id, args := splitPositional(args)
	fs := flag.NewFlagSet("inbox show", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if id == "" {
		id = fs.Arg(0)
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "Usage: twilio-gw inbox show <id>")
		return 1
	}

	ctx := context.Background()
	ib, closeDB, err := openInbox(ctx, *common.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open inbox: %v\n", err)
		return 1
	}
	defer closeDB()

	e, err := ib.Get(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inbox show: %v\n", err)
		return 1
	}
	if *common.jsonOut {
		return printJSON(e)
	}
	fmt.Printf("id:          %s\nkind:        %s\nsid:         %s\nreceived_at: %s\nfingerprint: %s\n",
		e.ID, e.Kind, e.SID, e.ReceivedAt.Format("2006-01-02T15:04:05.000Z07:00"), e.Fingerprint)
	for _, f := range e.Fields {
		fmt.Printf("  %s = %s\n", f.Name, f.Value)
	}
	return 0
}

// --- SIGN ---

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	rawURL := fs.String("url", "", "Full public URL Twilio calls, including any query")
	method := fs.String("method", http.MethodPost, "Request method: POST or GET")
	token := fs.String("token", "", "Auth token (defaults to config or $"+envAuthToken+")")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	u, err := url.Parse(*rawURL)
	if err != nil || u.Host == "" {
		fmt.Fprintln(os.Stderr, "sign: --url must be an absolute URL")
		return 1
	}
	m := strings.ToUpper(*method)
	if m != http.MethodPost && m != http.MethodGet {
		fmt.Fprintf(os.Stderr, "sign: unsupported method %q\n", *method)
		return 1
	}

	secret := *token
	if secret == "" {
		secret = os.Getenv(envAuthToken)
	}
	if secret == "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sign: no --token given and config unavailable: %v\n", err)
			return 1
		}
		secret = cfg.Twilio.AuthToken
	}

	fields := twilio.NewFields()
	for _, kv := range fs.Args() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "sign: field %q is not key=value\n", kv)
			return 1
		}
		fields.Set(k, v)
	}

	canonical := webhook.CanonicalString(u.Host, u.RequestURI(), m, fields)
	fmt.Println(webhook.Sign(secret, canonical))
	return 0
}
