// Package lane provides lane segmentation and lane intensity profiles for gel images.
package lane

import (
	"fmt"

	"gel-analyzer/pkg/geometry"
)

// Lane is a half-open column interval [Begin, End) holding one sample's track.
type Lane struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Width returns the number of columns covered by the lane.
func (l Lane) Width() int {
	return l.Interval().Width()
}

// Mid returns the lane's midpoint column.
func (l Lane) Mid() int {
	return l.Interval().Mid()
}

// Interval returns the lane as a geometry interval.
func (l Lane) Interval() geometry.Interval {
	return geometry.Interval{Begin: l.Begin, End: l.End}
}

func (l Lane) String() string {
	return fmt.Sprintf("[%d, %d)", l.Begin, l.End)
}

// Result holds the outcome of lane segmentation.
type Result struct {
	Lanes     []Lane  // Lanes in increasing Begin order
	MeanWidth float64 // Mean lane width used for acceptance; callers may persist it
	Params    Params  // Parameters used for segmentation
}

// Profile is the smoothed intensity curve of one lane along the migration axis.
type Profile struct {
	Lane   int       `json:"lane"`   // Index of the lane in the segmentation result
	Mid    int       `json:"mid"`    // Lane midpoint column, a display anchor
	Values []float64 `json:"values"` // One value per grid row
}
