package deliverylog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	bodySuffix    = ".body"
	headersSuffix = ".headers"
	logSuffix     = ".log"
)

// FSStore keeps each delivery as three files under baseDir:
// <id>.body (raw bytes), <id>.headers (header dump) and <id>.log (notes).
type FSStore struct {
	baseDir string
	now     func() time.Time
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates a filesystem-backed store rooted at baseDir.
func NewFSStore(baseDir string) (*FSStore, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return nil, fmt.Errorf("delivery log directory is empty")
	}
	if err := os.MkdirAll(trimmed, 0o750); err != nil {
		return nil, fmt.Errorf("create delivery log directory: %w", err)
	}

	return &FSStore{
		baseDir: filepath.Clean(trimmed),
		now:     time.Now,
	}, nil
}

// Record writes the body and header dump, then appends a received note.
func (s *FSStore) Record(ctx context.Context, id string, header http.Header, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}

	if err := os.WriteFile(s.path(id, bodySuffix), body, 0o640); err != nil {
		return fmt.Errorf("write delivery body %q: %w", id, err)
	}
	if err := os.WriteFile(s.path(id, headersSuffix), []byte(DumpHeaders(header)), 0o640); err != nil {
		return fmt.Errorf("write delivery headers %q: %w", id, err)
	}
	return s.appendNote(id, receivedNote(body))
}

// Annotate appends line to the delivery's .log file.
func (s *FSStore) Annotate(ctx context.Context, id, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}
	if _, err := os.Stat(s.path(id, bodySuffix)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("stat delivery %q: %w", id, err)
	}
	return s.appendNote(id, line)
}

// Get reads a delivery back from disk.
func (s *FSStore) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	bodyPath := s.path(id, bodySuffix)
	info, err := os.Stat(bodyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("stat delivery %q: %w", id, err)
	}
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, fmt.Errorf("read delivery body %q: %w", id, err)
	}

	rec := &Record{
		ID:         id,
		ReceivedAt: info.ModTime().UTC(),
		Header:     http.Header{},
		Body:       body,
	}

	if data, err := os.ReadFile(s.path(id, headersSuffix)); err == nil {
		rec.Header = parseHeaderDump(data)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read delivery headers %q: %w", id, err)
	}

	notes, err := s.readNotes(id)
	if err != nil {
		return nil, err
	}
	rec.Notes = notes
	return rec, nil
}

// List returns the most recently received deliveries first.
func (s *FSStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read delivery log directory: %w", err)
	}

	var out []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, bodySuffix) {
			continue
		}
		id := strings.TrimSuffix(name, bodySuffix)
		if !ValidDeliveryID(id) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		sum := Summary{ID: id, ReceivedAt: info.ModTime().UTC(), Size: info.Size()}
		if notes, err := s.readNotes(id); err == nil && len(notes) > 0 {
			sum.LastNote = notes[len(notes)-1].Line
		}
		out = append(out, sum)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error {
	return nil
}

func (s *FSStore) path(id, suffix string) string {
	return filepath.Join(s.baseDir, id+suffix)
}

func (s *FSStore) appendNote(id, line string) error {
	f, err := os.OpenFile(s.path(id, logSuffix), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open delivery log %q: %w", id, err)
	}
	entry := s.now().UTC().Format(timeLayout) + "\t" + sanitizeLine(line) + "\n"
	if _, err := f.WriteString(entry); err != nil {
		_ = f.Close()
		return fmt.Errorf("append delivery log %q: %w", id, err)
	}
	return f.Close()
}

func (s *FSStore) readNotes(id string) ([]Note, error) {
	data, err := os.ReadFile(s.path(id, logSuffix))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read delivery log %q: %w", id, err)
	}

	var notes []Note
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		stamp, line, ok := strings.Cut(scanner.Text(), "\t")
		if !ok {
			continue
		}
		at, err := time.Parse(timeLayout, stamp)
		if err != nil {
			continue
		}
		notes = append(notes, Note{At: at, Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan delivery log %q: %w", id, err)
	}
	return notes, nil
}

func parseHeaderDump(data []byte) http.Header {
	header := http.Header{}
	for _, line := range strings.Split(string(data), "\n") {
		name, value, ok := strings.Cut(line, ": ")
		if !ok || name == "" {
			continue
		}
		header.Add(name, value)
	}
	return header
}
