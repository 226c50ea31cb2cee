package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/cache"
	"github.com/zhaiiker/zpdes-sequencer/internal/engine"
)

// Style selects the table rendering.
type Style int

const (
	ASCII Style = iota
	Markdown
)

// WriteTable renders the activation state of every group, one row per value.
// Inactive values show "-" in the activation column.
func WriteTable(w io.Writer, groups []bandit.GroupState, style Style) error {
	t := newTable(style)
	t.AppendHeader(table.Row{"Node", "Slot", "Value", "H", "Activation", "Outcomes", "Turns"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for gi, g := range groups {
		for d, dim := range g.Dims {
			for v, val := range dim.Values {
				act := "-"
				if dim.Activations[v] != 0 {
					act = fmt.Sprintf("%.4f", dim.Activations[v])
				}
				h := ""
				if dim.Hierarchical {
					h = "h"
				}
				t.AppendRow(table.Row{g.ID, dim.Label, val, h, act, dim.HistoryLens[v], g.Turns[d]})
			}
		}
		if gi < len(groups)-1 {
			t.AppendSeparator()
		}
	}
	return render(w, t, style)
}

// WriteSummary renders one row per session plus a total footer.
func WriteSummary(w io.Writer, res engine.Response, style Style) error {
	t := newTable(style)
	t.AppendHeader(table.Row{"Session", "Learner", "Turns", "Success", "Activations", "Deactivations", "Active"})
	for _, s := range res.Sessions {
		sum := s.Summary
		t.AppendRow(table.Row{shortID(s.ID), s.Learner, sum.Turns, fmt.Sprintf("%.3f", sum.SuccessRate), sum.Activations, sum.Deactivated, sum.ActiveArms})
	}
	total := res.Summary()
	t.AppendFooter(table.Row{"total", "", total.Turns, fmt.Sprintf("%.3f", total.SuccessRate), total.Activations, total.Deactivated, total.ActiveArms})
	return render(w, t, style)
}

func newTable(style Style) table.Writer {
	t := table.NewWriter()
	if style == ASCII {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func render(w io.Writer, t table.Writer, style Style) error {
	var out string
	if style == Markdown {
		out = t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// WriteHistory renders recorded runs, best first.
func WriteHistory(w io.Writer, runs []cache.RunEntry, style Style) error {
	t := newTable(style)
	t.AppendHeader(table.Row{"#", "Graph", "Strategy", "Step", "Learners", "Turns", "Success", "Activations", "Runs", "Last run"})
	for i, r := range runs {
		t.AppendRow(table.Row{
			i + 1, r.Graph, r.Strategy, r.StepUpdate, r.Learners, r.Turns,
			fmt.Sprintf("%.3f", r.SuccessRate), r.Activations, r.RunCount,
			r.LastRun.Format(time.RFC3339),
		})
	}
	return render(w, t, style)
}
