package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/engine"
)

func WriteJSONL(w io.Writer, rows []engine.StepRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func WriteCSV(w io.Writer, rows []engine.StepRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"session", "learner", "turn",
		"action", "kc", "difficulty",
		"correct", "error_id",
		"activations", "deactivations", "active_arms",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		act, deact := countKinds(r.Transitions)
		rec := []string{
			r.Session,
			r.Learner,
			strconv.Itoa(r.Turn),
			FormatAction(r.Action),
			r.KC,
			fmt.Sprintf("%.4f", r.Difficulty),
			fmt.Sprintf("%.2f", r.Correct),
			r.ErrorID,
			strconv.Itoa(act),
			strconv.Itoa(deact),
			strconv.Itoa(r.ActiveArms),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteText(w io.Writer, rows []engine.StepRecord) error {
	for _, r := range rows {
		changes := ""
		if len(r.Transitions) > 0 {
			parts := make([]string, len(r.Transitions))
			for i, tr := range r.Transitions {
				parts[i] = tr.String()
			}
			changes = "\t" + strings.Join(parts, "; ")
		}
		_, err := fmt.Fprintf(w, "%s\t%d\t%s\tkc=%s\tdiff=%.2f\tcorrect=%.0f\tactive=%d%s\n",
			r.Learner, r.Turn, FormatAction(r.Action), r.KC, r.Difficulty, r.Correct, r.ActiveArms, changes)
		if err != nil {
			return err
		}
	}
	return nil
}

// FormatAction renders an action as "node:i,j node:k" with nodes sorted.
func FormatAction(a bandit.Action) string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for n, id := range ids {
		if n > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(id)
		b.WriteByte(':')
		for i, v := range a[id] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(v))
		}
	}
	return b.String()
}

func countKinds(trs []bandit.Transition) (act, deact int) {
	for _, tr := range trs {
		switch tr.Kind() {
		case "activate":
			act++
		case "deactivate":
			deact++
		}
	}
	return act, deact
}
