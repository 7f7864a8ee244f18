// Package report renders an energy estimate as a console table, CSV, JSON
// or a standalone HTML page.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ja7ad/energylog/pkg/consumption"
	"github.com/ja7ad/energylog/pkg/meter"
	"github.com/ja7ad/energylog/pkg/types"
	"github.com/ja7ad/energylog/pkg/util"
)

// ErrUnknownFormat indicates an unsupported output format name.
var ErrUnknownFormat = errors.New("report: unknown format")

type Format string

const (
	Text Format = "text"
	CSV  Format = "csv"
	JSON Format = "json"
	HTML Format = "html"
)

// Formats lists the supported output formats.
var Formats = []Format{Text, CSV, JSON, HTML}

// ParseFormat maps a case-insensitive name to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Report is the rendered view of one estimation run.
type Report struct {
	SessionID   string                 `json:"session_id"`
	Kind        string                 `json:"kind"`
	MaxPowerW   float64                `json:"max_power_w"`
	Events      []string               `json:"events"`
	EnergyWh    float64                `json:"energy_wh"`
	Hours       float64                `json:"hours"`
	AvgPowerW   float64                `json:"avg_power_w"`
	PeakPowerW  float64                `json:"peak_power_w"`
	Intervals   []consumption.Interval `json:"intervals"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// New builds a report for m from a result produced on m's events.
func New(m *meter.Meter, res consumption.Result) Report {
	intervals := res.Intervals
	if intervals == nil {
		intervals = []consumption.Interval{}
	}
	return Report{
		SessionID:   m.ID().String(),
		Kind:        m.Consumer().Kind(),
		MaxPowerW:   m.Consumer().MaxPower(),
		Events:      m.Keys(),
		EnergyWh:    res.EnergyWh,
		Hours:       res.Hours,
		AvgPowerW:   res.AvgPowerW,
		PeakPowerW:  res.PeakPowerW,
		Intervals:   intervals,
		GeneratedAt: time.Now(),
	}
}

// Summary is the one-line result printed by the console tool.
func (r Report) Summary() string {
	return fmt.Sprintf("Estimated energy used: %s Wh", types.WattHours(r.EnergyWh).Exact())
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case Text:
		return writeText(w, r)
	case CSV:
		return writeCSV(w, r)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case HTML:
		return tpl.Execute(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

func writeText(w io.Writer, r Report) error {
	if len(r.Intervals) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "START\tEND\tDELTA\tLEVEL\tP (W)\tHOURS\tE (Wh)")
		fmt.Fprintln(tw, "-----\t---\t-----\t-----\t-----\t-----\t------")
		for _, iv := range r.Intervals {
			// fixed decimals; aligned by tabs
			fmt.Fprintf(tw, "%s\t%s\t%+.4f\t%s\t%.3f\t%.4f\t%.4f\n",
				iv.Start.Format(time.DateTime), iv.End.Format(time.DateTime),
				iv.Delta, types.Level(iv.Level).Percent(), iv.PowerW, iv.Hours, iv.EnergyWh,
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	_, err := fmt.Fprintln(w, r.Summary())
	return err
}

func writeCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"start", "end", "delta", "level", "power_w", "hours", "energy_wh"}); err != nil {
		return err
	}
	for _, iv := range r.Intervals {
		err := cw.Write([]string{
			iv.Start.Format(time.RFC3339),
			iv.End.Format(time.RFC3339),
			util.FmtFloat(iv.Delta),
			util.FmtFloat(iv.Level),
			util.FmtFloat(iv.PowerW),
			util.FmtFloat(iv.Hours),
			util.FmtFloat(iv.EnergyWh),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var tpl = template.Must(template.New("rep").Funcs(template.FuncMap{
	"pct": func(l float64) string { return types.Level(l).Percent() },
	"wh":  func(e float64) string { return types.WattHours(e).String() },
}).Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>Energy Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
.small{color:#555}
.badge{display:inline-block;background:#eef;border:1px solid #ccd;padding:2px 6px;border-radius:6px;margin-right:6px;}
</style>

<h1>Energy Report</h1>

<p class="small">
<span class="badge">{{.Kind}}</span>
Session: {{.SessionID}} &nbsp;|&nbsp;
Max power: {{printf "%.3f" .MaxPowerW}} W &nbsp;|&nbsp;
Energy: {{wh .EnergyWh}}
</p>

<h2>Summary</h2>
<ul>
<li>Events: {{len .Events}}</li>
<li>Covered: {{printf "%.4f" .Hours}} h</li>
<li>Avg power: {{printf "%.3f" .AvgPowerW}} W</li>
<li>Peak power: {{printf "%.3f" .PeakPowerW}} W</li>
<li>Energy: {{wh .EnergyWh}}</li>
</ul>

{{if .Intervals}}
<h2>Intervals</h2>
<table>
<thead>
<tr><th>start</th><th>end</th><th>delta</th><th>level</th><th>P(W)</th><th>hours</th><th>E(Wh)</th></tr>
</thead>
<tbody>
{{range .Intervals}}
<tr>
<td style="text-align:left">{{.Start.Format "2006-01-02 15:04:05"}}</td>
<td>{{.End.Format "2006-01-02 15:04:05"}}</td>
<td>{{printf "%+.4f" .Delta}}</td>
<td>{{pct .Level}}</td>
<td>{{printf "%.3f" .PowerW}}</td>
<td>{{printf "%.4f" .Hours}}</td>
<td>{{printf "%.4f" .EnergyWh}}</td>
</tr>
{{end}}
</tbody>
</table>
{{end}}
</html>`))
