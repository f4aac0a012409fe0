// Package deliverylog records raw webhook deliveries keyed by their GitHub
// delivery ID, together with append-only notes about what happened to them.
//
// Delivery IDs become file names in the filesystem store, so every store
// rejects IDs that do not pass ValidDeliveryID.
package deliverylog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

var (
	// ErrInvalidDeliveryID is returned for IDs outside the [0-9a-f-] charset.
	ErrInvalidDeliveryID = errors.New("invalid delivery id")

	// ErrNotFound is returned when no delivery exists for an ID.
	ErrNotFound = errors.New("delivery not found")
)

// timeLayout sorts lexicographically, unlike time.RFC3339Nano.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is a stored delivery.
type Record struct {
	ID         string      `json:"id"`
	ReceivedAt time.Time   `json:"received_at"`
	Header     http.Header `json:"headers"`
	Body       []byte      `json:"-"`
	Notes      []Note      `json:"notes,omitempty"`
}

// Note is one appended log line.
type Note struct {
	At   time.Time `json:"at"`
	Line string    `json:"line"`
}

// Summary is a listing entry. LastNote is the most recent note line, which
// records how the gateway disposed of the delivery.
type Summary struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Size       int64     `json:"size"`
	LastNote   string    `json:"last_note,omitempty"`
}

// Store persists deliveries.
type Store interface {
	// Record stores the raw body and headers for id, replacing any earlier
	// copy (GitHub redeliveries reuse the ID) and appending a "received" note.
	Record(ctx context.Context, id string, header http.Header, body []byte) error
	// Annotate appends a single line to the delivery's notes.
	Annotate(ctx context.Context, id, line string) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]Summary, error)
	Close() error
}

// ValidDeliveryID reports whether id is non-empty and consists only of
// lowercase hex digits and dashes.
func ValidDeliveryID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

// Open returns the store for backend rooted at path.
func Open(ctx context.Context, backend, path string) (Store, error) {
	switch backend {
	case "fs":
		return NewFSStore(path)
	case "sqlite":
		return OpenSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported delivery log backend %q", backend)
	}
}

func checkID(id string) error {
	if !ValidDeliveryID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidDeliveryID, id)
	}
	return nil
}

// sanitizeLine keeps notes one line each.
func sanitizeLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

func receivedNote(body []byte) string {
	return fmt.Sprintf("received %d bytes", len(body))
}

// DumpHeaders renders header as sorted "Name: value" lines.
func DumpHeaders(header http.Header) string {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range header[k] {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	return b.String()
}
