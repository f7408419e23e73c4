/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package rollercoaster

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

// keyStatus is a single quarter/slot cell in the dashboard grid.
type keyStatus byte

const (
	statusIdle keyStatus = iota
	statusPublished
	statusSigning
	statusRevoked
)

// Char returns the single-letter status code used in both the text and
// HTML dashboards.
func (s keyStatus) Char() byte {
	switch s {
	case statusRevoked:
		return 'R'
	case statusSigning:
		return 'S'
	case statusPublished:
		return 'P'
	default:
		return ' '
	}
}

// DashboardRow is one KeyPair's status across the full year grid, keyed
// by "a<slot>-<role>" the way the original rollercoaster.render module
// names its rows.
type DashboardRow struct {
	Key  string
	Cols []keyStatus
}

// BuildDashboard walks every (quarter, slot) in a year, re-running
// Update(quarter, slot) on kr for each, and records the resulting status
// per key. It mutates kr's flags as a side
// effect of calling Update repeatedly (exactly as render.py does), so
// callers that need kr's live flags afterward should call kr.Update with
// the real current (quarter, slot) again once done.
func BuildDashboard(kr *KeyRing) []DashboardRow {
	order := []string{}
	seen := map[string]bool{}
	for i, keys := range kr.Keypairs() {
		for name := range keys {
			key := fmt.Sprintf("a%d-%s", i+1, name)
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}

	rows := map[string]*DashboardRow{}
	for _, k := range order {
		rows[k] = &DashboardRow{Key: k}
	}

	for quarter := 1; quarter <= QuarterCount; quarter++ {
		for slot := 1; slot <= SlotsPerQuarter; slot++ {
			_ = kr.Update(quarter, slot)
			for i, keys := range kr.Keypairs() {
				for name, kp := range keys {
					key := fmt.Sprintf("a%d-%s", i+1, name)
					row, ok := rows[key]
					if !ok {
						continue
					}
					var st keyStatus
					switch {
					case kp.Revoked:
						st = statusRevoked
					case kp.Sign:
						st = statusSigning
					case kp.Publish:
						st = statusPublished
					default:
						st = statusIdle
					}
					row.Cols = append(row.Cols, st)
				}
			}
		}
	}

	out := make([]DashboardRow, 0, len(order))
	for _, k := range order {
		out = append(out, *rows[k])
	}
	return out
}

// RenderText writes the dashboard as a plain-text grid, one row per key,
// a space-separated status letter per slot and a "|" every quarter
// boundary, matching rollercoaster.render.render_text's layout.
func RenderText(w io.Writer, rows []DashboardRow) error {
	for _, row := range rows {
		var b strings.Builder
		fmt.Fprintf(&b, "%-14s", row.Key)
		for i, st := range row.Cols {
			fmt.Fprintf(&b, " %c", st.Char())
			if (i+1)%SlotsPerQuarter == 0 {
				b.WriteString(" |")
			}
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// dashboardTemplate is the HTML counterpart of render_html's dashboard.j2;
// standard library html/template is used rather than a third-party engine
// so the key-status grid gets automatic HTML escaping for free (none of
// the pack's templating dependencies — e.g. alecthomas/template — escape
// output, which matters because the dashboard is written out as an HTML
// page for a browser).
var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><meta http-equiv="refresh" content="{{.Refresh}}"><title>rollercoaster</title></head>
<body>
<table border="1">
{{range .Rows}}<tr><td>{{.Key}}</td>{{range .Cols}}<td>{{printf "%c" .Char}}</td>{{end}}</tr>
{{end}}</table>
</body>
</html>
`))

// dashboardPage is the data shape handed to dashboardTemplate.
type dashboardPage struct {
	Refresh int
	Rows    []DashboardRow
}

// RenderHTML writes the dashboard as a self-refreshing HTML page.
func RenderHTML(w io.Writer, rows []DashboardRow, refreshSeconds int) error {
	return dashboardTemplate.Execute(w, dashboardPage{Refresh: refreshSeconds, Rows: rows})
}
