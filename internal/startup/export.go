package startup

import (
	"encoding/csv"
	"io"
	"time"
)

// ExportHeader is the fixed column order of exported rows. Consumers parse
// by position, so the order never changes.
var ExportHeader = []string{
	"name",
	"sources",
	"scope",
	"policy_state",
	"runtime_state",
	"last_ran",
	"last_ran_confidence",
}

// ExportRows flattens entries into export rows in the entries' own order.
// A last-ran value is only emitted when a tier actually produced one; the
// confidence column always names the tier, including "unknown".
func ExportRows(entries []*Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		sources := ""
		for i, src := range e.Sources {
			if i > 0 {
				sources += "+"
			}
			sources += src.Kind.String()
		}

		lastRan := ""
		if e.LastRan.Tier != TierUnknown && !e.LastRan.Time.IsZero() {
			lastRan = e.LastRan.Time.UTC().Format(time.RFC3339)
		}

		rows = append(rows, []string{
			e.Name,
			sources,
			e.Scope.String(),
			e.Policy.String(),
			e.Runtime.String(),
			lastRan,
			e.LastRan.Tier.String(),
		})
	}
	return rows
}

// WriteCSV writes the header followed by one row per entry.
func WriteCSV(w io.Writer, entries []*Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, row := range ExportRows(entries) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
