package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
)

// column renders one table column from one or more record fields, joined
// with spaces.
type column struct {
	header string
	fields []string
}

var (
	userColumns = []column{
		{"ID", []string{"id"}},
		{"NAME", []string{"firstName", "lastName"}},
		{"EMAIL", []string{"email"}},
		{"VERIFIED", []string{"isEmailVerified"}},
	}
	providerColumns = []column{
		{"ID", []string{"id"}},
		{"NAME", []string{"firstName", "lastName"}},
		{"EMAIL", []string{"email"}},
	}
	locationColumns = []column{
		{"ID", []string{"id"}},
		{"NAME", []string{"name"}},
		{"CITY", []string{"city"}},
		{"STATE", []string{"state"}},
	}
	specialtyColumns = []column{
		{"ID", []string{"id"}},
		{"NAME", []string{"name"}},
	}
	timeSlotColumns = []column{
		{"ID", []string{"id"}},
		{"DATE", []string{"date"}},
		{"START", []string{"startTime"}},
		{"END", []string{"endTime"}},
		{"STATUS", []string{"status"}},
	}
	appointmentColumns = []column{
		{"ID", []string{"id"}},
		{"DATE", []string{"appointmentDate"}},
		{"TIME", []string{"appointmentTime"}},
		{"STATUS", []string{"status"}},
	}
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPage(w io.Writer, page *adminsdk.Page[adminsdk.Record], cols []column) error {
	if len(page.Data) == 0 {
		_, err := fmt.Fprintln(w, "No records found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := make([]string, len(cols))
	for i, col := range cols {
		headers[i] = col.header
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, rec := range page.Data {
		var fields map[string]any
		if err := json.Unmarshal(rec, &fields); err != nil {
			return fmt.Errorf("failed to decode record: %w", err)
		}

		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = cell(fields, col.fields)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", page.Page, max(page.TotalPages, 1), page.Total)
	return err
}

func cell(fields map[string]any, names []string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := fields[name]; ok && v != nil {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
