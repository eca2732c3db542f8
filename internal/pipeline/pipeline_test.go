package pipeline

import (
	"testing"

	"gel-analyzer/internal/band"
	"gel-analyzer/internal/config"
	"gel-analyzer/internal/image"
	"gel-analyzer/internal/lane"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthLane describes one lane of a synthetic gel and the centre rows of its
// bands. Each band is five rows tall.
type synthLane struct {
	begin, end int
	bands      []int
}

func synthGel(width, height int, lanes ...synthLane) *image.Grid {
	g := image.NewGrid(width, height)
	for i := range g.Pix {
		g.Pix[i] = 10
	}
	for _, l := range lanes {
		for y := 0; y < height; y++ {
			for x := l.begin; x < l.end; x++ {
				g.Set(y, x, 60)
			}
		}
		for _, c := range l.bands {
			for y := c - 2; y <= c+2; y++ {
				for x := l.begin; x < l.end; x++ {
					g.Set(y, x, 250)
				}
			}
		}
	}
	return g
}

func threeLaneGel() *image.Grid {
	return synthGel(100, 100,
		synthLane{10, 30, []int{50}},
		synthLane{40, 61, []int{52}},
		synthLane{70, 89, []int{48}},
	)
}

func fourLaneGel() *image.Grid {
	return synthGel(130, 120,
		synthLane{10, 30, []int{25, 65}},
		synthLane{40, 60, []int{25, 65}},
		synthLane{70, 90, []int{45, 85}},
		synthLane{100, 120, []int{45, 85}},
	)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Matching.Distance = 10
	return cfg
}

func TestThreeLaneScenario(t *testing.T) {
	s, err := New(threeLaneGel(), testConfig(), nil).DetectLanes()
	require.NoError(t, err)
	assert.Equal(t, []lane.Lane{{10, 30}, {40, 61}, {70, 89}}, s.Lanes)
	assert.InDelta(t, 20.5, s.MeanWidth, 1e-9)

	// Background 10 is removed inside lanes and gaps are cleared.
	assert.Equal(t, uint8(50), s.Background.At(10, 20))
	assert.Equal(t, uint8(240), s.Background.At(50, 20))
	assert.Equal(t, uint8(0), s.Background.At(50, 35))

	s, err = s.DetectBands()
	require.NoError(t, err)
	require.Len(t, s.Bands, 3)
	for l, want := range []int{50, 52, 48} {
		require.Len(t, s.Bands[l], 1, "lane %d", l)
		assert.Equal(t, want, s.Bands[l][0].Position)
		assert.Equal(t, band.Unassigned, s.Bands[l][0].Cluster)
	}

	s, err = s.MatchBands()
	require.NoError(t, err)
	assert.Equal(t, 10, s.Threshold)
	require.Len(t, s.Clusters, 1)
	assert.Equal(t, []int{0, 1, 2}, s.Clusters[0].Lanes())
	assert.Equal(t, 1, s.Matrix.Rows())
	assert.Equal(t, 3, s.Matrix.Cols())

	s, err = s.BuildTree()
	require.NoError(t, err)
	assert.Equal(t, 3, s.Tree.Leaves)
	assert.Equal(t, 100.0, s.Similarity.At(0, 2))
	assert.Equal(t, StageTree, s.Stage)
}

func TestRunFourLanes(t *testing.T) {
	ladder := &Ladder{Name: "two", Weights: []float64{1000, 100}, MarkerLane: 0}

	s, err := Run(fourLaneGel(), testConfig(), nil, ladder)

	require.NoError(t, err)
	require.Len(t, s.Lanes, 4)
	require.Len(t, s.Clusters, 4)
	assert.Equal(t, []int{4, 4, 5, 5, -1, -1}, s.Tree.Parent)
	assert.Equal(t, []string{"Lane  1", "Lane  2", "Lane  3", "Lane  4"}, s.Labels)
	assert.Equal(t, 0.0, s.Distance.At(0, 1))
	assert.Equal(t, 100.0, s.Distance.At(0, 2))

	require.NotNil(t, s.Model)
	assert.Equal(t, []int{1000, 100}, s.Weights[0])
	assert.Equal(t, s.Weights[0], s.Weights[1])
}

func TestMarkerLanesExcludedFromMatching(t *testing.T) {
	cfg := testConfig()
	cfg.Matching.MarkerLanes = []int{0}

	s, err := Run(fourLaneGel(), cfg, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, s.Matrix.Lanes)
	assert.Equal(t, []string{"Lane  2", "Lane  3", "Lane  4"}, s.Labels)
	for _, b := range s.Labelled[0] {
		assert.Equal(t, band.Unassigned, b.Cluster)
	}
	assert.Equal(t, 3, s.Tree.Leaves)
	assert.Nil(t, s.Model)
}

func TestNoLanes(t *testing.T) {
	g := image.NewGrid(40, 40)

	_, err := New(g, testConfig(), nil).DetectLanes()
	assert.ErrorIs(t, err, ErrNoLanes)

	_, err = New(image.NewGrid(0, 0), testConfig(), nil).DetectLanes()
	assert.ErrorIs(t, err, ErrNoLanes)
}

func TestNoBands(t *testing.T) {
	g := synthGel(60, 50, synthLane{20, 40, nil})

	s, err := New(g, testConfig(), nil).DetectLanes()
	require.NoError(t, err)
	_, err = s.DetectBands()

	assert.ErrorIs(t, err, ErrNoBands)
}

func TestStageOrder(t *testing.T) {
	s := New(threeLaneGel(), testConfig(), nil)

	_, err := s.DetectBands()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = s.MatchBands()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = s.BuildTree()
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = s.ComputeWeights(Ladder{Weights: []float64{10, 1}})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRecomputeClearsDownstream(t *testing.T) {
	full, err := Run(threeLaneGel(), testConfig(), nil, nil)
	require.NoError(t, err)

	again, err := full.DetectBands()
	require.NoError(t, err)

	assert.Equal(t, StageBands, again.Stage)
	assert.Nil(t, again.Clusters)
	assert.Nil(t, again.Matrix)
	assert.Nil(t, again.Tree)
	assert.Equal(t, full.RunID, again.RunID)

	// The earlier snapshot is untouched.
	assert.NotNil(t, full.Tree)
	assert.Len(t, full.Clusters, 1)
}

func TestWithLanes(t *testing.T) {
	s, err := New(threeLaneGel(), testConfig(), nil).WithLanes([]lane.Lane{{70, 89}, {10, 30}})
	require.NoError(t, err)

	assert.Equal(t, []lane.Lane{{10, 30}, {70, 89}}, s.Lanes)
	assert.InDelta(t, 19.5, s.MeanWidth, 1e-9)

	_, err = s.WithLanes(nil)
	assert.ErrorIs(t, err, ErrNoLanes)
}

func TestMatchBandsUsesConfiguredLabels(t *testing.T) {
	cfg := testConfig()
	cfg.Tree.Labels = []string{"wild type", "", "mutant"}

	s, err := Run(threeLaneGel(), cfg, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"wild type", "Lane  2", "mutant"}, s.Labels)
	nwk, err := s.Tree.Newick(s.Labels)
	require.NoError(t, err)
	assert.Contains(t, nwk, "'wild type'")
}

func TestWithLanesRejectsInvalidLanes(t *testing.T) {
	tests := []struct {
		name  string
		lanes []lane.Lane
	}{
		{"past right edge", []lane.Lane{{120, 140}}},
		{"straddles right edge", []lane.Lane{{10, 30}, {90, 101}}},
		{"negative begin", []lane.Lane{{-5, 10}}},
		{"empty", []lane.Lane{{30, 30}}},
		{"inverted", []lane.Lane{{40, 20}}},
		{"overlapping", []lane.Lane{{40, 61}, {10, 45}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := New(threeLaneGel(), testConfig(), nil)

			s, err := start.WithLanes(tt.lanes)

			assert.ErrorIs(t, err, ErrInvalidLane)
			assert.Nil(t, s)
			assert.Equal(t, StageLoaded, start.Stage)
		})
	}
}

func TestWithLanesAtGridEdgeDetectsBands(t *testing.T) {
	cfg := testConfig()
	cfg.Lanes.Background = config.BackgroundNone
	s, err := New(threeLaneGel(), cfg, nil).WithLanes([]lane.Lane{{10, 30}, {80, 100}})
	require.NoError(t, err)

	s, err = s.DetectBands()

	require.NoError(t, err)
	require.Len(t, s.Bands, 2)
	assert.NotEmpty(t, s.Bands[0])
}

func TestComputeWeightsLadderMismatch(t *testing.T) {
	s, err := New(threeLaneGel(), testConfig(), nil).DetectLanes()
	require.NoError(t, err)
	s, err = s.DetectBands()
	require.NoError(t, err)

	_, err = s.ComputeWeights(Ladder{Weights: []float64{1000, 500, 100}, MarkerLane: 0})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "marker lane band count")
}

func TestSessionEmitsEvents(t *testing.T) {
	session := NewSession(New(threeLaneGel(), testConfig(), nil))
	var seen []Stage
	for _, ev := range []EventType{EventLanesDetected, EventBandsDetected, EventBandsMatched, EventTreeBuilt} {
		session.On(ev, func(s *Snapshot) { seen = append(seen, s.Stage) })
	}

	require.NoError(t, session.DetectLanes())
	require.NoError(t, session.DetectBands())
	require.NoError(t, session.MatchBands())
	require.NoError(t, session.BuildTree())

	assert.Equal(t, []Stage{StageLanes, StageBands, StageMatched, StageTree}, seen)
	assert.NotNil(t, session.Current().Tree)
}

func TestSessionKeepsSnapshotOnError(t *testing.T) {
	start := New(threeLaneGel(), testConfig(), nil)
	session := NewSession(start)

	err := session.BuildTree()

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Same(t, start, session.Current())
}
