package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaiiker/zpdes-sequencer/internal/bandit"
	"github.com/zhaiiker/zpdes-sequencer/internal/engine"
)

func sampleRows() []engine.StepRecord {
	return []engine.StepRecord{
		{
			Session: "s1", Learner: "learner-000", Turn: 1,
			Action: bandit.Action{"MAIN": {0}, "M": {0, 2}},
			KC:     "M", Correct: 1, ActiveArms: 5,
		},
		{
			Session: "s1", Learner: "learner-000", Turn: 2,
			Action: bandit.Action{"MAIN": {0}, "M": {1, 0}},
			KC:     "M", Difficulty: 1.0 / 6, ErrorID: "gap", ActiveArms: 6,
			Transitions: []bandit.Transition{
				{Node: "M", Dim: 0, Index: 2, Value: "m3", From: 0, To: 0.04},
				{Node: "M", Dim: 0, Index: 0, Value: "m1", From: 0.03, To: 0},
			},
		},
	}
}

func TestFormatAction(t *testing.T) {
	assert.Equal(t, "M:0,2 MAIN:0", FormatAction(bandit.Action{"MAIN": {0}, "M": {0, 2}}))
	assert.Equal(t, "", FormatAction(nil))
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got engine.StepRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, 2, got.Turn)
	assert.Equal(t, "gap", got.ErrorID)
	assert.Len(t, got.Transitions, 2)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "session", recs[0][0])
	assert.Equal(t, []string{"s1", "learner-000", "2", "M:1,0 MAIN:0", "M", "0.1667", "0.00", "gap", "1", "1", "6"}, recs[2])
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleRows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "learner-000\t1\tM:0,2 MAIN:0\tkc=M\tdiff=0.00\tcorrect=1\tactive=5", lines[0])
	assert.Contains(t, lines[1], "activate M[0]=m3 0->0.04; deactivate M[0]=m1 0.03->0")
}

func TestWriteTable(t *testing.T) {
	groups := []bandit.GroupState{
		{
			ID:    "MAIN",
			Turns: []int{4},
			Dims: []bandit.DimState{{
				Label: "exercise_type", Hierarchical: true,
				Values: []string{"M", "R"}, Activations: []float64{0.05, 0}, HistoryLens: []int{4, 0},
			}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, groups, ASCII))
	out := buf.String()
	assert.Contains(t, out, "exercise_type")
	assert.Contains(t, out, "0.0500")
	assert.Contains(t, out, "-")

	buf.Reset()
	require.NoError(t, WriteTable(&buf, groups, Markdown))
	assert.True(t, strings.HasPrefix(buf.String(), "| Node"))
}

func TestWriteSummary(t *testing.T) {
	res := engine.Response{Sessions: []engine.SessionResult{
		{ID: "0f1e2d3c-aaaa", Learner: "learner-000", Summary: engine.Summary{Turns: 10, SuccessRate: 0.5, Activations: 2}},
		{ID: "9a8b7c6d-bbbb", Learner: "learner-001", Summary: engine.Summary{Turns: 10, SuccessRate: 1}},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, res, ASCII))
	out := buf.String()
	assert.Contains(t, out, "0f1e2d3c")
	assert.NotContains(t, out, "aaaa")
	assert.Contains(t, out, "0.750")
}
