package watch

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/hookgate/internal/deliverylog"
)

// Source is the read side of a delivery log.
type Source interface {
	List(ctx context.Context, limit int) ([]deliverylog.Summary, error)
	Get(ctx context.Context, id string) (*deliverylog.Record, error)
}

const readTimeout = 5 * time.Second

type deliveriesMsg struct {
	summaries []deliverylog.Summary
	at        time.Time
}

type detailMsg struct {
	record *deliverylog.Record
}

type pollMsg time.Time

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func fetchDeliveries(source Source, limit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		summaries, err := source.List(ctx, limit)
		if err != nil {
			return errMsg{err}
		}
		return deliveriesMsg{summaries: summaries, at: time.Now()}
	}
}

func fetchDetail(source Source, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		rec, err := source.Get(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return detailMsg{record: rec}
	}
}

func schedulePoll(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return pollMsg(t) })
}
