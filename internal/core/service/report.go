package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/teaqnet/access-api/internal/core/domain"
)

var historyCSVHeader = []string{"id", "occurred_at", "actor_email", "action", "subject_id", "details"}

// WriteHistoryCSV renders entries as a CSV report in the order given.
func WriteHistoryCSV(w io.Writer, entries []*domain.AuditEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.OccurredAt.UTC().Format(time.RFC3339),
			csvCell(e.ActorEmail),
			string(e.Action),
			csvCell(e.SubjectID),
			csvCell(formatPayload(e.Payload)),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatPayload renders k=v pairs in key order.
func formatPayload(p map[string]any) string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s=%v", k, csvValue(p[k]))
	}
	return b.String()
}

// csvValue neutralises a user-supplied value so it cannot start a
// spreadsheet formula.
func csvValue(v any) any {
	if s, ok := v.(string); ok {
		return csvCell(s)
	}
	return v
}

// csvCell prefixes cells that spreadsheets would evaluate as formulas.
func csvCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
