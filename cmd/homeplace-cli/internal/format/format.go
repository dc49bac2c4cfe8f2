// Package format renders CLI results as tables or JSON.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nfrund/homeplace/internal/catalog"
)

// Output formats accepted by --format.
const (
	Table = "table"
	JSON  = "json"
)

// Valid reports whether f is a known output format.
func Valid(f string) bool {
	return f == Table || f == JSON
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Page writes one page of catalog results.
func Page(w io.Writer, p catalog.Page, format string) error {
	if format == JSON {
		return writeJSON(w, p)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTYLE\tTYPE\tPRICE")
	fmt.Fprintln(tw, "--\t-----\t-----\t----\t-----")
	if len(p.Items) == 0 {
		fmt.Fprintln(tw, "No projects found")
	}
	for _, pr := range p.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", pr.ID, truncateString(pr.Title, 30), pr.Style, pr.Type, pr.Price)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\npage %d of %d (%d total)\n", p.Page, p.Pages(), p.Total)
	return err
}

// KeyValues writes settings in a stable key order.
func KeyValues(w io.Writer, keys []string, values map[string]string, format string) error {
	if format == JSON {
		return writeJSON(w, values)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		v := values[k]
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", k, v)
	}
	return tw.Flush()
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
