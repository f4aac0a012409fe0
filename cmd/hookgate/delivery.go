package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattjoyce/hookgate/internal/config"
	"github.com/mattjoyce/hookgate/internal/deliverylog"
	"github.com/mattjoyce/hookgate/internal/inspect"
	"github.com/mattjoyce/hookgate/internal/tui/watch"
	"github.com/mattjoyce/hookgate/internal/webhook"
)

const sendTimeout = 60 * time.Second

func printSystemWatchHelp() {
	fmt.Println("Usage: hookgate system watch [--config PATH] [--interval 2s] [--limit N]")
	fmt.Println("Live view of recent deliveries and how each was handled.")
}

func printDeliveryListHelp() {
	fmt.Println("Usage: hookgate delivery list [--config PATH] [--limit N]")
	fmt.Println("List recent deliveries, newest first.")
}

func printDeliveryInspectHelp() {
	fmt.Println("Usage: hookgate delivery inspect <delivery-id> [--config PATH] [--json] [--no-verify]")
	fmt.Println("Show a stored delivery with its signature check and current verdict.")
}

func printDeliverySendHelp() {
	fmt.Println("Usage: hookgate delivery send [--config PATH] [--payload FILE|-] [--event push] [--url URL] [--id DELIVERY-ID]")
	fmt.Println("Sign a payload with the configured secret and POST it to the gateway.")
}

// openDeliveryLog loads config and opens its delivery log for reading.
func openDeliveryLog(ctx context.Context, configPath string) (*config.Config, deliverylog.Store, error) {
	cfg, err := loadConfigForTool(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config load error: %w", err)
	}
	if cfg.DeliveryLog.Backend == config.BackendNone {
		return nil, nil, fmt.Errorf("delivery log is disabled (delivery_log.backend: none)")
	}
	store, err := deliverylog.Open(ctx, cfg.DeliveryLog.Backend, cfg.DeliveryLog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open delivery log: %w", err)
	}
	return cfg, store, nil
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	limit := fs.Int("limit", 50, "Number of deliveries to show")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	_, store, err := openDeliveryLog(context.Background(), *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	p := tea.NewProgram(watch.New(store, *interval, *limit))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		return 1
	}
	return 0
}

func runDeliveryList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	limit := fs.Int("limit", 20, "Number of deliveries to list")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	ctx := context.Background()
	_, store, err := openDeliveryLog(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	out, err := inspect.BuildListReport(ctx, store, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List error: %v\n", err)
		return 1
	}
	fmt.Print(out)
	return 0
}

func runDeliveryInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	noVerify := fs.Bool("no-verify", false, "Skip the signature check")
	if err := fs.Parse(reorderArgs(args, map[string]bool{"config": true})); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hookgate delivery inspect <delivery-id> [--json] [--no-verify]")
		return 1
	}
	id := fs.Arg(0)

	ctx := context.Background()
	cfg, store, err := openDeliveryLog(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer store.Close()

	var secret []byte
	if !*noVerify {
		secret = []byte(cfg.Filter.Secret)
	}

	var out string
	if *jsonOut {
		out, err = inspect.BuildJSONReport(ctx, store, secret, id)
	} else {
		out, err = inspect.BuildReport(ctx, store, secret, id)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inspect error: %v\n", err)
		return 1
	}
	fmt.Print(out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
	return 0
}

func runDeliverySend(args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	payloadPath := fs.String("payload", "", "Payload file, or - for stdin (default: {})")
	event := fs.String("event", "push", "Value for X-GitHub-Event")
	target := fs.String("url", "", "Gateway URL (default: derived from server.listen and filter.path)")
	deliveryID := fs.String("id", "", "Delivery ID (default: random UUID)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfigForTool(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	body, err := readPayload(*payloadPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Payload error: %v\n", err)
		return 1
	}

	url := *target
	if url == "" {
		url = gatewayURL(cfg)
	}
	id := *deliveryID
	if id == "" {
		id = uuid.NewString()
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request error: %v\n", err)
		return 1
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hookgate/"+version)
	req.Header.Set(webhook.HeaderEvent, *event)
	req.Header.Set(webhook.HeaderDelivery, id)
	req.Header.Set(webhook.HeaderSignature256, webhook.ComputeSignature([]byte(cfg.Filter.Secret), body))

	client := &http.Client{Timeout: sendTimeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Send error: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Response read error: %v\n", err)
		return 1
	}

	fmt.Printf("Delivery: %s\n", id)
	fmt.Printf("Status:   %d\n", resp.StatusCode)
	fmt.Println(strings.TrimSpace(string(respBody)))

	if resp.StatusCode >= 300 {
		return 1
	}
	return 0
}

func readPayload(path string) ([]byte, error) {
	switch path {
	case "":
		return []byte("{}"), nil
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(path)
	}
}

// gatewayURL builds the local gateway URL from the listen address. Wildcard
// hosts are replaced with loopback so the request stays on this machine.
func gatewayURL(cfg *config.Config) string {
	host, port, err := net.SplitHostPort(cfg.Server.Listen)
	if err != nil {
		return "http://" + cfg.Server.Listen + cfg.Filter.Path
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + cfg.Filter.Path
}
