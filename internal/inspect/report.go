// Package inspect renders stored deliveries for operators.
package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattjoyce/hookgate/internal/deliverylog"
	"github.com/mattjoyce/hookgate/internal/webhook"
)

// Signature check outcomes reported for a stored delivery.
const (
	SignatureValid     = "valid"
	SignatureInvalid   = "invalid"
	SignatureMissing   = "missing"
	SignatureUnchecked = "unchecked"
)

// Verdicts the classifier gives a stored body today.
const (
	VerdictForward   = "forward"
	VerdictSuppress  = "suppress"
	VerdictMalformed = "malformed"
)

// Reader is the read side of a delivery log.
type Reader interface {
	Get(ctx context.Context, id string) (*deliverylog.Record, error)
	List(ctx context.Context, limit int) ([]deliverylog.Summary, error)
}

// Report is the structured JSON representation of a stored delivery.
type Report struct {
	DeliveryID string              `json:"delivery_id"`
	ReceivedAt time.Time           `json:"received_at"`
	Event      string              `json:"event"`
	Size       int                 `json:"size"`
	Signature  string              `json:"signature"`
	Verdict    string              `json:"verdict"`
	Rule       string              `json:"rule,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Headers    map[string][]string `json:"headers"`
	Notes      []deliverylog.Note  `json:"notes"`
	Payload    json.RawMessage     `json:"payload,omitempty"`
}

// BuildReport renders a terminal-friendly report for one delivery. The
// signature is re-checked only when secret is non-empty.
func BuildReport(ctx context.Context, store Reader, secret []byte, id string) (string, error) {
	report, err := gatherReportData(ctx, store, secret, id)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Delivery Report\n")
	fmt.Fprintf(&out, "Delivery ID : %s\n", report.DeliveryID)
	fmt.Fprintf(&out, "Received    : %s\n", report.ReceivedAt.Format(time.RFC3339))
	fmt.Fprintf(&out, "Event       : %s\n", orNone(report.Event))
	fmt.Fprintf(&out, "Size        : %d bytes\n", report.Size)
	fmt.Fprintf(&out, "Signature   : %s\n", report.Signature)
	if report.Rule != "" {
		fmt.Fprintf(&out, "Verdict     : %s (%s: %s)\n", report.Verdict, report.Rule, report.Reason)
	} else {
		fmt.Fprintf(&out, "Verdict     : %s\n", report.Verdict)
	}
	fmt.Fprintf(&out, "\n")

	fmt.Fprintf(&out, "Headers:\n")
	for _, line := range strings.Split(strings.TrimSpace(deliverylog.DumpHeaders(report.Headers)), "\n") {
		if line != "" {
			fmt.Fprintf(&out, "  %s\n", line)
		}
	}
	fmt.Fprintf(&out, "\n")

	fmt.Fprintf(&out, "Notes:\n")
	if len(report.Notes) == 0 {
		fmt.Fprintf(&out, "  <none>\n")
	}
	for _, n := range report.Notes {
		fmt.Fprintf(&out, "  %s  %s\n", n.At.Format(time.RFC3339), n.Line)
	}

	if len(report.Payload) > 0 {
		fmt.Fprintf(&out, "\nPayload:\n")
		for _, line := range strings.Split(strings.TrimSpace(prettyJSON(report.Payload)), "\n") {
			fmt.Fprintf(&out, "  %s\n", line)
		}
	}

	return strings.TrimRight(out.String(), "\n") + "\n", nil
}

// BuildJSONReport returns the machine-readable delivery report.
func BuildJSONReport(ctx context.Context, store Reader, secret []byte, id string) (string, error) {
	report, err := gatherReportData(ctx, store, secret, id)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json report: %w", err)
	}
	return string(data), nil
}

// BuildListReport renders the most recent deliveries as a table.
func BuildListReport(ctx context.Context, store Reader, limit int) (string, error) {
	summaries, err := store.List(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("list deliveries: %w", err)
	}
	if len(summaries) == 0 {
		return "No deliveries recorded.\n", nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DELIVERY ID", "RECEIVED", "SIZE", "LAST NOTE")
	for _, s := range summaries {
		t.Row(s.ID, s.ReceivedAt.Format(time.RFC3339), strconv.FormatInt(s.Size, 10), s.LastNote)
	}
	return t.String() + "\n", nil
}

func gatherReportData(ctx context.Context, store Reader, secret []byte, id string) (*Report, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("delivery id is required")
	}

	rec, err := store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load delivery %s: %w", id, err)
	}

	report := &Report{
		DeliveryID: rec.ID,
		ReceivedAt: rec.ReceivedAt,
		Event:      rec.Header.Get(webhook.HeaderEvent),
		Size:       len(rec.Body),
		Signature:  checkSignature(rec, secret),
		Headers:    rec.Header,
		Notes:      rec.Notes,
	}
	if report.Headers == nil {
		report.Headers = map[string][]string{}
	}
	if report.Notes == nil {
		report.Notes = []deliverylog.Note{}
	}

	payload, err := webhook.ParsePayload(rec.Body)
	if err != nil {
		report.Verdict = VerdictMalformed
		return report, nil
	}
	report.Payload = json.RawMessage(rec.Body)

	verdict := webhook.Classify(report.Event, payload)
	if verdict.Suppress {
		report.Verdict = VerdictSuppress
		report.Rule = verdict.Rule
		report.Reason = verdict.Reason
	} else {
		report.Verdict = VerdictForward
	}
	return report, nil
}

func checkSignature(rec *deliverylog.Record, secret []byte) string {
	provided := rec.Header.Values(webhook.HeaderSignature256)
	switch {
	case len(provided) == 0:
		return SignatureMissing
	case len(secret) == 0:
		return SignatureUnchecked
	case webhook.VerifySignature(secret, rec.Body, provided[0]):
		return SignatureValid
	default:
		return SignatureInvalid
	}
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
