package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Viewer displays transcripts
type Viewer struct{}

// NewViewer creates a viewer
func NewViewer() *Viewer {
	return &Viewer{}
}

// ViewSummary writes the header and a one-line preview per turn.
func (v *Viewer) ViewSummary(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)

	fmt.Fprintln(w, "\nTurns:")
	for _, turn := range t.Turns {
		preview := strings.ReplaceAll(truncate(turn.Content, 100), "\n", " ")
		fmt.Fprintf(w, "  [%d] %-10s %-16s %s\n", turn.ID, turn.Role, label(turn), preview)
	}
	return nil
}

// ViewFull writes every turn in full.
func (v *Viewer) ViewFull(w io.Writer, t *Transcript) error {
	v.writeHeader(w, t)

	for _, turn := range t.Turns {
		fmt.Fprintln(w)
		header := fmt.Sprintf("[%d] %s %s (%s)",
			turn.ID, strings.ToUpper(turn.Role), label(turn), turn.Timestamp.Format("15:04:05"))
		if turn.TokensIn > 0 {
			header += fmt.Sprintf(" [%d tokens in]", turn.TokensIn)
		}
		if turn.TokensOut > 0 {
			header += fmt.Sprintf(" [%d tokens out]", turn.TokensOut)
		}
		if turn.DurationMs > 0 {
			header += fmt.Sprintf(" [%dms]", turn.DurationMs)
		}
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, strings.Repeat("-", 60))
		fmt.Fprintln(w, turn.Content)
	}
	return nil
}

// FormatMetaList formats a list of metadata for display
func (v *Viewer) FormatMetaList(w io.Writer, metas []Meta) error {
	if len(metas) == 0 {
		fmt.Fprintln(w, "No transcripts found.")
		return nil
	}

	fmt.Fprintf(w, "%-28s %-12s %-14s %-17s %12s %6s\n",
		"RUN ID", "STATUS", "PROPERTY", "STARTED", "TOKENS", "TURNS")
	fmt.Fprintln(w, strings.Repeat("-", 94))
	for _, m := range metas {
		fmt.Fprintf(w, "%-28s %-12s %-14s %-17s %12s %6d\n",
			truncate(m.RunID, 28),
			m.Status,
			truncate(m.PropertyRef, 14),
			m.StartedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", m.TotalTokensIn, m.TotalTokensOut),
			m.TurnCount)
	}
	return nil
}

func (v *Viewer) writeHeader(w io.Writer, t *Transcript) {
	sep := strings.Repeat("=", 60)
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "Run: %s | Status: %s\n", t.RunID, t.Metadata.Status)
	if t.Metadata.PropertyRef != "" {
		fmt.Fprintf(w, "Property: %s\n", t.Metadata.PropertyRef)
	}
	fmt.Fprintf(w, "Started: %s | Duration: %s\n",
		t.Metadata.StartedAt.Format("2006-01-02 15:04:05"),
		t.Duration().Round(time.Second))
	fmt.Fprintf(w, "Tokens: %d in / %d out\n", t.Metadata.TotalTokensIn, t.Metadata.TotalTokensOut)
	if t.Metadata.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", t.Metadata.Error)
	}
	fmt.Fprintln(w, sep)
}

func label(turn Turn) string {
	if turn.Section != "" {
		return turn.Stage + "/" + turn.Section
	}
	return turn.Stage
}

// truncate shortens a string to max length
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
