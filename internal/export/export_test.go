package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gel-analyzer/internal/cluster"
	"gel-analyzer/internal/config"
	"gel-analyzer/internal/image"
	"gel-analyzer/internal/phylo"
	"gel-analyzer/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleMatrix() *cluster.MatchMatrix {
	return cluster.NewMatchMatrix(mat.NewDense(2, 3, []float64{
		1, 0, 1,
		0, 1, 1,
	}))
}

func TestWriteMatchMatrix(t *testing.T) {
	tests := []struct {
		name       string
		format     MatrixFormat
		transposed bool
		want       string
	}{
		{"zero one", ZeroOne, false, "1 0 1\n0 1 1\n"},
		{"zero one transposed", ZeroOne, true, "1 0\n0 1\n1 1\n"},
		{"plus minus", PlusMinus, false, "+ - +\n- + +\n"},
		{"plus minus transposed", PlusMinus, true, "+ -\n- +\n+ +\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteMatchMatrix(&buf, sampleMatrix(), tt.format, tt.transposed))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteMatchMatrixEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatchMatrix(&buf, &cluster.MatchMatrix{Lanes: []int{0, 1}}, ZeroOne, false))
	assert.Empty(t, buf.String())
}

func TestReadMatchMatrix(t *testing.T) {
	for _, in := range []string{"1 0 1\n0 1 1\n", "+ - +\n\n- + +\n"} {
		m, err := ReadMatchMatrix(strings.NewReader(in))
		require.NoError(t, err)
		assert.True(t, mat.Equal(sampleMatrix().Data, m.Data))
		assert.Equal(t, []int{0, 1, 2}, m.Lanes)
	}
}

func TestReadMatchMatrixErrors(t *testing.T) {
	for _, in := range []string{"", "1 0\n1\n", "1 2\n"} {
		_, err := ReadMatchMatrix(strings.NewReader(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestWriteMatrixTwoDecimals(t *testing.T) {
	sim, err := phylo.Similarity(sampleMatrix())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, sim))

	assert.Equal(t, "100.00 0.00 66.67\n0.00 100.00 66.67\n66.67 66.67 100.00\n", buf.String())
}

func TestWriteWeights(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWeights(&buf, [][]int{{23130, 9416}, {}, {500}}))
	assert.Equal(t, "23130 9416\n\n500\n", buf.String())
}

func TestWriteNewick(t *testing.T) {
	dist := mat.NewSymDense(2, []float64{0, 6, 6, 0})
	tree, err := phylo.NeighborJoining(dist)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteNewick(&buf, tree, []string{"a", "b"}))
	assert.Equal(t, "(a:3,b:3);\n", buf.String())

	assert.Error(t, WriteNewick(&buf, tree, []string{"a"}))
}

func TestParseMatrixFormat(t *testing.T) {
	f, err := ParseMatrixFormat("+-")
	require.NoError(t, err)
	assert.Equal(t, PlusMinus, f)

	f, err = ParseMatrixFormat("01")
	require.NoError(t, err)
	assert.Equal(t, ZeroOne, f)

	_, err = ParseMatrixFormat("xml")
	assert.Error(t, err)
}

// twoLaneRun analyzes a gel with two lanes sharing one band.
func twoLaneRun(t *testing.T) *pipeline.Snapshot {
	t.Helper()
	g := image.NewGrid(100, 100)
	for i := range g.Pix {
		g.Pix[i] = 10
	}
	for y := 0; y < 100; y++ {
		for _, cols := range [][2]int{{10, 30}, {40, 60}} {
			for x := cols[0]; x < cols[1]; x++ {
				v := uint8(60)
				if y >= 48 && y <= 52 {
					v = 250
				}
				g.Set(y, x, v)
			}
		}
	}
	cfg := config.Default()
	cfg.Matching.Distance = 5

	s, err := pipeline.Run(g, cfg, nil, nil)
	require.NoError(t, err)
	return s
}

func TestReport(t *testing.T) {
	s := twoLaneRun(t)

	report, err := NewReport(s)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s.RunID.String(), decoded["run_id"])
	assert.Equal(t, "tree", decoded["stage"])
	assert.Equal(t, float64(1), decoded["clusters"])
	assert.Equal(t, "nj", decoded["method"])
	assert.Equal(t, "('Lane  1':0,'Lane  2':0);", decoded["newick"])
	assert.Len(t, decoded["lanes"], 2)
}

func TestReportSaveAndLabelMismatch(t *testing.T) {
	s := twoLaneRun(t)

	report, err := NewReport(s)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage": "tree"`)

	bad := *s
	bad.Labels = []string{"only one"}
	_, err = NewReport(&bad)
	assert.Error(t, err)
}
