// Package pipeline chains the analysis stages over one gel image.
//
// Every stage returns a new Snapshot; the receiver is never modified.
// Recomputing a stage drops every artifact that depends on it.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"gel-analyzer/internal/background"
	"gel-analyzer/internal/band"
	"gel-analyzer/internal/cluster"
	"gel-analyzer/internal/config"
	"gel-analyzer/internal/image"
	"gel-analyzer/internal/lane"
	"gel-analyzer/internal/phylo"
	"gel-analyzer/internal/weight"
	"gel-analyzer/pkg/geometry"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoLanes is returned when segmentation finds no lane.
	ErrNoLanes = errors.New("no lanes detected")

	// ErrNoBands is returned when there are no bands to work with.
	ErrNoBands = errors.New("no bands detected")

	// ErrNotReady is returned when a stage runs before the stage it needs.
	ErrNotReady = errors.New("prerequisite stage has not run")

	// ErrInvalidLane is returned for supplied lanes that are empty, fall
	// outside the grid or overlap another lane.
	ErrInvalidLane = errors.New("invalid lane")
)

// Stage identifies the last stage a snapshot has completed.
type Stage int

const (
	StageLoaded Stage = iota
	StageLanes
	StageBands
	StageMatched
	StageTree
)

func (s Stage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageLanes:
		return "lanes"
	case StageBands:
		return "bands"
	case StageMatched:
		return "matched"
	case StageTree:
		return "tree"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Ladder is a reference weight ladder and the lane it was loaded in.
type Ladder struct {
	Name       string
	Weights    []float64
	MarkerLane int
}

// Snapshot holds the artifacts of one analysis state.
type Snapshot struct {
	RunID  uuid.UUID
	Stage  Stage
	Config config.Config

	Grid *image.Grid

	// Lane segmentation.
	Lanes      []lane.Lane
	MeanWidth  float64
	Background *image.Grid

	// Band detection, one list per lane.
	Bands [][]band.Band

	// Weight estimation. Independent of matching.
	Ladder  *Ladder
	Model   *weight.Model
	Weights [][]int

	// Matching. Labelled mirrors Bands with cluster ids set.
	Threshold int
	Clusters  []cluster.Cluster
	Labelled  [][]band.Band
	Matrix    *cluster.MatchMatrix
	Labels    []string

	// Tree.
	Similarity *mat.SymDense
	Distance   *mat.SymDense
	Tree       *phylo.Tree

	logger *slog.Logger
}

// New starts an analysis of grid.
func New(grid *image.Grid, cfg config.Config, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = config.Discard()
	}
	s := &Snapshot{
		RunID:  uuid.New(),
		Stage:  StageLoaded,
		Config: cfg,
		Grid:   grid,
	}
	s.logger = logger.With("run", s.RunID.String())
	return s
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	return &c
}

func (s *Snapshot) clearMatching() {
	s.Threshold = 0
	s.Clusters = nil
	s.Labelled = nil
	s.Matrix = nil
	s.Labels = nil
	s.Similarity = nil
	s.Distance = nil
	s.Tree = nil
}

func (s *Snapshot) clearBands() {
	s.Bands = nil
	s.Ladder = nil
	s.Model = nil
	s.Weights = nil
	s.clearMatching()
}

// subtractBackground applies the configured background estimator.
func (s *Snapshot) subtractBackground(lanes []lane.Lane) *image.Grid {
	switch s.Config.Lanes.Background {
	case config.BackgroundNone:
		return s.Grid
	case config.BackgroundMidGap:
		return background.Subtract(s.Grid, lanes, background.MidGapLevels)
	default:
		return background.Subtract(s.Grid, lanes, background.MeanGapLevels)
	}
}

// IsMarker reports whether lane l is configured as a marker lane.
func (s *Snapshot) IsMarker(l int) bool {
	for _, m := range s.Config.Matching.MarkerLanes {
		if m == l {
			return true
		}
	}
	return false
}

// DetectLanes segments the grid into lanes and removes the background.
func (s *Snapshot) DetectLanes() (*Snapshot, error) {
	if s.Grid.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrNoLanes)
	}
	c := s.clone()
	c.clearBands()

	res := lane.Segment(s.Grid, s.Config.Lanes.Params)
	if len(res.Lanes) == 0 {
		return nil, ErrNoLanes
	}
	c.Lanes = res.Lanes
	c.MeanWidth = res.MeanWidth

	c.Background = s.subtractBackground(c.Lanes)

	c.Stage = StageLanes
	c.logger.Info("lanes detected", "lanes", len(c.Lanes), "mean_width", c.MeanWidth,
		"background", s.Config.Lanes.Background)
	return c, nil
}

// WithLanes replaces the lanes with a caller supplied set, for example
// lanes adjusted by hand, and recomputes the background.
func (s *Snapshot) WithLanes(lanes []lane.Lane) (*Snapshot, error) {
	if len(lanes) == 0 {
		return nil, ErrNoLanes
	}
	sorted := append([]lane.Lane(nil), lanes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Begin < sorted[j].Begin })
	if err := checkLanes(sorted, s.Grid.Width); err != nil {
		return nil, err
	}

	c := s.clone()
	c.clearBands()
	c.Lanes = sorted
	var sum float64
	for _, l := range c.Lanes {
		sum += float64(l.Width())
	}
	c.MeanWidth = sum / float64(len(c.Lanes))
	c.Background = s.subtractBackground(c.Lanes)
	c.Stage = StageLanes
	c.logger.Info("lanes replaced", "lanes", len(c.Lanes))
	return c, nil
}

// checkLanes verifies that sorted lanes are non-empty, lie within width
// columns and do not overlap.
func checkLanes(sorted []lane.Lane, width int) error {
	cols := geometry.Interval{Begin: 0, End: width}
	for i, l := range sorted {
		iv := l.Interval()
		if iv.Empty() {
			return fmt.Errorf("%w: %s is empty", ErrInvalidLane, l)
		}
		if !cols.Contains(iv.Begin) || !cols.Contains(iv.End-1) {
			return fmt.Errorf("%w: %s outside image width %d", ErrInvalidLane, l, width)
		}
		if i > 0 && sorted[i-1].Interval().Overlaps(iv) {
			return fmt.Errorf("%w: %s overlaps %s", ErrInvalidLane, l, sorted[i-1])
		}
	}
	return nil
}

// DetectBands finds bands in every lane of the background-subtracted grid.
func (s *Snapshot) DetectBands() (*Snapshot, error) {
	if s.Stage < StageLanes {
		return nil, fmt.Errorf("%w: detect lanes first", ErrNotReady)
	}
	c := s.clone()
	c.clearBands()

	c.Bands = band.Extract(s.Background, s.Lanes, s.Config.Bands)
	total := band.Count(c.Bands)
	if total == 0 {
		return nil, ErrNoBands
	}

	c.Stage = StageBands
	c.logger.Info("bands detected", "bands", total, "lanes", len(c.Bands),
		"threshold", s.Config.Bands.Threshold)
	return c, nil
}

// ComputeWeights fits the weight model on the ladder's marker lane and
// estimates the weight of every band, marker lanes included.
func (s *Snapshot) ComputeWeights(ladder Ladder) (*Snapshot, error) {
	if s.Stage < StageBands {
		return nil, fmt.Errorf("%w: detect bands first", ErrNotReady)
	}
	model, err := weight.Fit(s.Bands, ladder.Weights, ladder.MarkerLane)
	if err != nil {
		return nil, fmt.Errorf("failed to fit weight model: %w", err)
	}

	c := s.clone()
	c.Ladder = &ladder
	c.Model = &model
	c.Weights = weight.Apply(s.Bands, model)
	c.logger.Info("weights computed", "ladder", ladder.Name, "marker_lane", ladder.MarkerLane,
		"slope", model.Slope, "intercept", model.Intercept)
	return c, nil
}

// MatchBands clusters the bands of all non-marker lanes and builds the match
// matrix. The match distance is a percentage of the image height.
func (s *Snapshot) MatchBands() (*Snapshot, error) {
	if s.Stage < StageBands {
		return nil, fmt.Errorf("%w: detect bands first", ErrNotReady)
	}
	c := s.clone()
	c.clearMatching()

	var flat []band.Band
	for l, bands := range s.Bands {
		if !s.IsMarker(l) {
			flat = append(flat, bands...)
		}
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("%w: only marker lanes have bands", ErrNoBands)
	}

	c.Threshold = cluster.ThresholdFromPercent(s.Config.Matching.Distance, s.Grid.Height)
	c.Clusters = cluster.Match(flat, c.Threshold)
	c.Labelled = cluster.Label(s.Bands, c.Clusters)
	c.Matrix = cluster.BuildMatchMatrix(c.Labelled, len(c.Clusters), s.Config.Matching.MarkerLanes...)
	c.Labels = phylo.LaneLabels(c.Matrix.Lanes, s.Config.Tree.Labels...)

	c.Stage = StageMatched
	c.logger.Info("bands matched", "clusters", len(c.Clusters), "threshold", c.Threshold,
		"markers", len(s.Config.Matching.MarkerLanes))
	return c, nil
}

// BuildTree computes lane similarity from the match matrix and builds the
// tree with the configured method.
func (s *Snapshot) BuildTree() (*Snapshot, error) {
	if s.Stage < StageMatched {
		return nil, fmt.Errorf("%w: match bands first", ErrNotReady)
	}
	sim, err := phylo.Similarity(s.Matrix)
	if err != nil {
		return nil, fmt.Errorf("failed to compute similarity: %w", err)
	}
	dist := phylo.Distance(sim)

	method := s.Config.TreeMethod()
	tree, err := phylo.Build(dist, method)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}

	c := s.clone()
	c.Similarity = sim
	c.Distance = dist
	c.Tree = tree
	c.Stage = StageTree
	c.logger.Info("tree built", "method", method.String(), "leaves", tree.Leaves)
	return c, nil
}

// Run executes every stage. Weights are computed when ladder is not nil.
func Run(grid *image.Grid, cfg config.Config, logger *slog.Logger, ladder *Ladder) (*Snapshot, error) {
	s, err := New(grid, cfg, logger).DetectLanes()
	if err != nil {
		return nil, err
	}
	if s, err = s.DetectBands(); err != nil {
		return nil, err
	}
	if ladder != nil {
		if s, err = s.ComputeWeights(*ladder); err != nil {
			return nil, err
		}
	}
	if s, err = s.MatchBands(); err != nil {
		return nil, err
	}
	return s.BuildTree()
}
