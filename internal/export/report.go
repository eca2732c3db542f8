package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gel-analyzer/internal/band"
	"gel-analyzer/internal/lane"
	"gel-analyzer/internal/phylo"
	"gel-analyzer/internal/pipeline"
	"gel-analyzer/internal/version"
	"gel-analyzer/internal/weight"

	"gonum.org/v1/gonum/mat"
)

// Report is the JSON summary of an analysis snapshot.
type Report struct {
	RunID     string    `json:"run_id"`
	Created   time.Time `json:"created"`
	Version   string    `json:"version"`
	Stage     string    `json:"stage"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	MeanWidth float64   `json:"mean_width,omitempty"`

	Lanes []lane.Lane   `json:"lanes,omitempty"`
	Bands [][]band.Band `json:"bands,omitempty"`

	Standard string        `json:"standard,omitempty"`
	Model    *weight.Model `json:"model,omitempty"`
	Weights  [][]int       `json:"weights,omitempty"`

	Threshold  int         `json:"threshold,omitempty"`
	Clusters   int         `json:"clusters,omitempty"`
	Labels     []string    `json:"labels,omitempty"`
	Similarity [][]float64 `json:"similarity,omitempty"`
	Method     string      `json:"method,omitempty"`
	Tree       *phylo.Tree `json:"tree,omitempty"`
	Newick     string      `json:"newick,omitempty"`
}

// NewReport summarizes a snapshot. Bands carry cluster ids once matching
// has run.
func NewReport(s *pipeline.Snapshot) (*Report, error) {
	r := &Report{
		RunID:     s.RunID.String(),
		Created:   time.Now(),
		Version:   version.String(),
		Stage:     s.Stage.String(),
		MeanWidth: s.MeanWidth,
		Lanes:     s.Lanes,
		Bands:     s.Bands,
		Model:     s.Model,
		Weights:   s.Weights,
		Threshold: s.Threshold,
		Labels:    s.Labels,
		Tree:      s.Tree,
	}
	if s.Grid != nil {
		r.Width, r.Height = s.Grid.Width, s.Grid.Height
	}
	if s.Labelled != nil {
		r.Bands = s.Labelled
		r.Clusters = len(s.Clusters)
	}
	if s.Ladder != nil {
		r.Standard = s.Ladder.Name
	}
	if s.Similarity != nil {
		r.Similarity = rows(s.Similarity)
	}
	if s.Tree != nil {
		r.Method = s.Config.TreeMethod().String()
		newick, err := s.Tree.Newick(s.Labels)
		if err != nil {
			return nil, fmt.Errorf("failed to format tree: %w", err)
		}
		r.Newick = newick
	}
	return r, nil
}

// Write encodes the report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Save writes the report to a file.
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := r.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

func rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
