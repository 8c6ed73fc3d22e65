// Package telemetry publishes derived peer reports: as a terminal table, as
// structured log lines and as Prometheus gauges.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const missing = "-"

// TableSink renders one table per cycle.
type TableSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTableSink(w io.Writer) *TableSink {
	return &TableSink{w: w}
}

func (s *TableSink) Publish(_ context.Context, reports []domain.PeerReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, Render(reports))
	return err
}

// Render formats reports sorted by peer id. Values the transport did not
// report are shown as "-".
func Render(reports []domain.PeerReport) string {
	sorted := append([]domain.PeerReport(nil), reports...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PeerID < sorted[j].PeerID })

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Peer", "RTT ms", "Out kbps", "In kbps",
		"Audio kbps", "Audio loss", "Audio jitter",
		"Video kbps", "Video loss", "FPS", "Resolution"})

	for _, r := range sorted {
		t.AppendRow(table.Row{
			shortID(r.PeerID),
			optFloat(r.RoundTripMs, "%.0f"),
			optInt(r.OutgoingKbps),
			optInt(r.IncomingKbps),
			streamBitrate(r.Audio),
			streamLoss(r.Audio),
			streamJitter(r.Audio),
			streamBitrate(r.Video),
			streamLoss(r.Video),
			streamFPS(r.Video),
			resolution(r.Resolution),
		})
	}
	if len(sorted) == 0 {
		t.AppendFooter(table.Row{"no active peers"})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})
	return t.Render() + "\n"
}

func shortID(id domain.ClientID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf(format, *v)
}

func optInt(v *int64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%d", *v)
}

func streamBitrate(s *domain.StreamReport) string {
	if s == nil {
		return missing
	}
	return fmt.Sprintf("%d", s.BitrateKbps)
}

func streamLoss(s *domain.StreamReport) string {
	if s == nil {
		return missing
	}
	return fmt.Sprintf("%.1f%%", s.LossPct)
}

func streamJitter(s *domain.StreamReport) string {
	if s == nil {
		return missing
	}
	return optFloat(s.JitterMs, "%.1f ms")
}

func streamFPS(s *domain.StreamReport) string {
	if s == nil {
		return missing
	}
	return optInt(s.FPS)
}

func resolution(r *domain.Resolution) string {
	if r == nil {
		return missing
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}
