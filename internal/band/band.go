// Package band detects bands in lane intensity profiles.
package band

import (
	"fmt"

	"gel-analyzer/internal/image"
	"gel-analyzer/internal/lane"

	"github.com/exascience/pargo/parallel"
)

// Unassigned marks a band that has not been placed in a cluster.
const Unassigned = -1

// Band is a local intensity maximum in a lane profile.
type Band struct {
	Lane     int `json:"lane"`     // Index of the owning lane
	Position int `json:"position"` // Row along the migration axis
	Cluster  int `json:"cluster"`  // Cluster id, or Unassigned
	Column   int `json:"column"`   // Lane midpoint column, for display
}

func (b Band) String() string {
	return fmt.Sprintf("lane %d @ %d", b.Lane, b.Position)
}

// Params holds band detection parameters.
type Params struct {
	// A peak is kept when its profile value exceeds Threshold times the lane width.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// Moving average half-width and number of passes used to smooth profiles.
	FilterWidth  int `yaml:"filter_width" json:"filter_width"`
	FilterPasses int `yaml:"filter_passes" json:"filter_passes"`
}

// DefaultParams returns default band detection parameters.
func DefaultParams() Params {
	return Params{
		Threshold:    20,
		FilterWidth:  lane.DefaultWindow,
		FilterPasses: lane.DefaultPasses,
	}
}

// WithThreshold returns a copy of params with a custom detection threshold.
func (p Params) WithThreshold(threshold float64) Params {
	p.Threshold = threshold
	return p
}

// WithFilter returns a copy of params with custom smoothing settings.
func (p Params) WithFilter(width, passes int) Params {
	p.FilterWidth = width
	p.FilterPasses = passes
	return p
}

// Extract smooths the lane profiles of a background-subtracted grid and
// detects bands in them.
func Extract(grid *image.Grid, lanes []lane.Lane, params Params) [][]Band {
	profiles := lane.Profiles(grid, lanes, params.FilterWidth, params.FilterPasses)
	return Detect(profiles, lanes, params)
}

// Detect finds the bands of every lane. The result has one slice per lane,
// possibly empty, with bands in increasing position order. Profiles without
// a matching entry in lanes yield no bands. Lanes are processed in parallel.
func Detect(profiles []lane.Profile, lanes []lane.Lane, params Params) [][]Band {
	bands := make([][]Band, len(profiles))
	if len(profiles) == 0 {
		return bands
	}

	parallel.Range(0, len(profiles), 0, func(low, high int) {
		for k := low; k < high; k++ {
			if k >= len(lanes) {
				bands[k] = []Band{}
				continue
			}
			p := profiles[k]
			limit := params.Threshold * float64(lanes[k].Width())
			found := []Band{}
			for _, pos := range Peaks(p.Values) {
				if p.Values[pos] > limit {
					found = append(found, Band{
						Lane:     k,
						Position: pos,
						Cluster:  Unassigned,
						Column:   p.Mid,
					})
				}
			}
			bands[k] = found
		}
	})
	return bands
}

// Peaks returns the positions of strict local maxima of a profile after
// runs of equal values are collapsed into plateaus. The position of a peak
// is the middle row of its plateau, rounded down. Plateaus touching either
// end of the profile are never peaks.
func Peaks(values []float64) []int {
	if len(values) == 0 {
		return nil
	}

	// starts[i] is the first row of plateau i.
	starts := []int{0}
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			starts = append(starts, i)
		}
	}

	var peaks []int
	for i := 1; i < len(starts)-1; i++ {
		prev := values[starts[i-1]]
		cur := values[starts[i]]
		next := values[starts[i+1]]
		if prev < cur && next < cur {
			end := starts[i+1] - 1
			peaks = append(peaks, (starts[i]+end)/2)
		}
	}
	return peaks
}

// Flatten returns all bands of all lanes in lane order.
func Flatten(perLane [][]Band) []Band {
	var n int
	for _, b := range perLane {
		n += len(b)
	}
	all := make([]Band, 0, n)
	for _, b := range perLane {
		all = append(all, b...)
	}
	return all
}

// Count returns the total number of bands.
func Count(perLane [][]Band) int {
	var n int
	for _, b := range perLane {
		n += len(b)
	}
	return n
}
