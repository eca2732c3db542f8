package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gel-analyzer/internal/config"
	"gel-analyzer/internal/export"
	"gel-analyzer/internal/phylo"
	"gel-analyzer/internal/pipeline"
	"gel-analyzer/internal/standards"

	"github.com/spf13/cobra"
)

// Flags shared by analyze and lanes.
var (
	loaderName string
	laneWidth  float64
	background string
)

// analyze flags
var (
	markerLanes   []int
	markerLane    int
	standardName  string
	matchDistance float64
	treeMethod    string
	bandThreshold float64
	outDir        string
	matrixFormat  string
	transpose     bool
	laneNames     []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Run the full analysis on a gel image",
	Long: `Detect lanes and bands, match bands across lanes and build a similarity
tree. With --standard, band weights are estimated from the ladder loaded in
the marker lane.

Examples:
  gelanalyzer analyze gel.png
  gelanalyzer analyze gel.tif --markers 0 --standard lambda --match-distance 1.5
  gelanalyzer analyze gel.png --method upgma --out results/`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func addImageFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&loaderName, "loader", "go", "image loader (go, opencv)")
	cmd.Flags().Float64Var(&laneWidth, "lane-width", 0, "mean lane width in pixels (0 = estimate)")
	cmd.Flags().StringVar(&background, "background", "", fmt.Sprintf("background estimator (%s, %s, %s)",
		config.BackgroundMeanGap, config.BackgroundMidGap, config.BackgroundNone))
}

func init() {
	addImageFlags(analyzeCmd)
	analyzeCmd.Flags().IntSliceVar(&markerLanes, "markers", nil, "marker lanes, zero-based, excluded from matching")
	analyzeCmd.Flags().IntVar(&markerLane, "marker-lane", -1, "lane holding the ladder (default: first marker)")
	analyzeCmd.Flags().StringVar(&standardName, "standard", "", "ladder standard used for weight estimation")
	analyzeCmd.Flags().Float64Var(&matchDistance, "match-distance", 0, "match distance in percent of image height")
	analyzeCmd.Flags().StringVar(&treeMethod, "method", "", "tree method (nj, single, complete, upgma, wpgma)")
	analyzeCmd.Flags().Float64Var(&bandThreshold, "threshold", 0, "band detection threshold per lane column")
	analyzeCmd.Flags().StringVarP(&outDir, "out", "o", "", "write matrices, weights, tree and report to this directory")
	analyzeCmd.Flags().StringVar(&matrixFormat, "matrix-format", "01", "match matrix format (01, +-)")
	analyzeCmd.Flags().BoolVar(&transpose, "transpose", false, "write the match matrix with one lane per line")
	analyzeCmd.Flags().StringSliceVar(&laneNames, "labels", nil, "lane names for the tree in lane order, empty entries keep the default")
}

// applyImageFlags copies image related flags over the loaded config.
func applyImageFlags(cmd *cobra.Command) error {
	if cmd.Flags().Changed("lane-width") {
		cfg.Lanes.MeanWidth = laneWidth
	}
	if background != "" {
		cfg.Lanes.Background = background
	}
	return cfg.Validate()
}

func loadImage(path string) (*pipeline.Snapshot, error) {
	load, err := loader(loaderName)
	if err != nil {
		return nil, err
	}
	grid, err := load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("image loaded", "path", path, "width", grid.Width, "height", grid.Height, "loader", loaderName)
	return pipeline.New(grid, cfg, logger), nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := applyImageFlags(cmd); err != nil {
		return err
	}
	if cmd.Flags().Changed("markers") {
		cfg.Matching.MarkerLanes = markerLanes
	}
	if cmd.Flags().Changed("match-distance") {
		cfg.Matching.Distance = matchDistance
	}
	if treeMethod != "" {
		cfg.Tree.Method = treeMethod
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Bands.Threshold = bandThreshold
	}
	if standardName != "" {
		cfg.Weights.Standard = standardName
	}
	if cmd.Flags().Changed("labels") {
		cfg.Tree.Labels = laneNames
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	format, err := export.ParseMatrixFormat(matrixFormat)
	if err != nil {
		return err
	}

	ladder, err := resolveLadder()
	if err != nil {
		return err
	}

	start, err := loadImage(args[0])
	if err != nil {
		return err
	}
	session := pipeline.NewSession(start)
	if err := session.DetectLanes(); err != nil {
		return err
	}
	if err := session.DetectBands(); err != nil {
		return err
	}
	if ladder != nil {
		if err := session.ComputeWeights(*ladder); err != nil {
			return err
		}
	}
	if err := session.MatchBands(); err != nil {
		return err
	}
	if err := session.BuildTree(); err != nil {
		return err
	}
	s := session.Current()

	if err := printSummary(cmd.OutOrStdout(), s); err != nil {
		return err
	}
	if outDir != "" {
		if err := writeOutputs(outDir, s, format); err != nil {
			return err
		}
		logger.Info("results written", "dir", outDir)
	}
	return nil
}

// resolveLadder loads the configured standard, if any, and picks the lane
// it was run in.
func resolveLadder() (*pipeline.Ladder, error) {
	if cfg.Weights.Standard == "" {
		return nil, nil
	}
	store, err := standards.NewStore(cfg.Weights.StandardsDir)
	if err != nil {
		return nil, err
	}
	std, err := store.Load(cfg.Weights.Standard)
	if err != nil {
		return nil, err
	}
	if err := std.Validate(); err != nil {
		return nil, err
	}

	marker := cfg.Weights.MarkerLane
	if markerLane >= 0 {
		marker = markerLane
	} else if len(cfg.Matching.MarkerLanes) > 0 {
		marker = cfg.Matching.MarkerLanes[0]
	}
	return &pipeline.Ladder{Name: std.Name, Weights: std.Float(), MarkerLane: marker}, nil
}

func printSummary(w io.Writer, s *pipeline.Snapshot) error {
	fmt.Fprintf(w, "Run %s\n", s.RunID)
	fmt.Fprintf(w, "Lanes: %d (mean width %.1f)\n", len(s.Lanes), s.MeanWidth)
	for i, l := range s.Lanes {
		marker := ""
		if s.IsMarker(i) {
			marker = " marker"
		}
		fmt.Fprintf(w, "  %2d  %-10s bands %d%s\n", i+1, l, len(s.Bands[i]), marker)
	}
	if s.Weights != nil {
		fmt.Fprintf(w, "Weights (%s, lane %d):\n", s.Ladder.Name, s.Ladder.MarkerLane+1)
		if err := export.WriteWeights(w, s.Weights); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "Clusters: %d (distance %d rows)\n", len(s.Clusters), s.Threshold)
	fmt.Fprintf(w, "Tree (%s):\n", s.Config.TreeMethod())
	return export.WriteNewick(w, s.Tree, s.Labels)
}

func writeOutputs(dir string, s *pipeline.Snapshot, format export.MatrixFormat) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	write := func(name string, fn func(io.Writer) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return f.Close()
	}

	if err := write("matrix.txt", func(w io.Writer) error {
		return export.WriteMatchMatrix(w, s.Matrix, format, transpose)
	}); err != nil {
		return err
	}
	if err := write("similarity.txt", func(w io.Writer) error {
		return export.WriteMatrix(w, s.Similarity)
	}); err != nil {
		return err
	}
	if err := write("distance.txt", func(w io.Writer) error {
		return export.WriteMatrix(w, s.Distance)
	}); err != nil {
		return err
	}
	if err := write("tree.nwk", func(w io.Writer) error {
		return export.WriteNewick(w, s.Tree, s.Labels)
	}); err != nil {
		return err
	}
	if s.Weights != nil {
		if err := write("weights.txt", func(w io.Writer) error {
			return export.WriteWeights(w, s.Weights)
		}); err != nil {
			return err
		}
	}
	report, err := export.NewReport(s)
	if err != nil {
		return err
	}
	return report.Save(filepath.Join(dir, "report.json"))
}

var lanesCmd = &cobra.Command{
	Use:   "lanes <image>",
	Short: "Detect lanes and print them with the mean lane width",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyImageFlags(cmd); err != nil {
			return err
		}
		s, err := loadImage(args[0])
		if err != nil {
			return err
		}
		s, err = s.DetectLanes()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "mean width %.2f\n", s.MeanWidth)
		for i, l := range s.Lanes {
			fmt.Fprintf(w, "%s %d %d\n", phylo.LaneLabels([]int{i}, cfg.Tree.Labels...)[0], l.Begin, l.End)
		}
		return nil
	},
}

func init() {
	addImageFlags(lanesCmd)
}
