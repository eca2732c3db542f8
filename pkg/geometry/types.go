// Package geometry provides basic geometric types used throughout the application.
package geometry

// Interval is a half-open integer range [Begin, End).
type Interval struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Width returns End - Begin. Inverted intervals have a negative width.
func (iv Interval) Width() int {
	return iv.End - iv.Begin
}

// Mid returns the integer midpoint (Begin + End) / 2.
func (iv Interval) Mid() int {
	return (iv.Begin + iv.End) / 2
}

// Empty reports whether the interval covers no positions.
func (iv Interval) Empty() bool {
	return iv.End <= iv.Begin
}

// Contains reports whether v lies in [Begin, End).
func (iv Interval) Contains(v int) bool {
	return v >= iv.Begin && v < iv.End
}

// Overlaps reports whether two intervals share at least one position.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Begin < other.End && other.Begin < iv.End
}

// Clamp returns the interval restricted to [0, limit). An interval lying
// entirely past limit becomes the empty interval [limit, limit).
func (iv Interval) Clamp(limit int) Interval {
	if iv.Begin < 0 {
		iv.Begin = 0
	}
	if iv.Begin > limit {
		iv.Begin = limit
	}
	if iv.End > limit {
		iv.End = limit
	}
	if iv.End < iv.Begin {
		iv.End = iv.Begin
	}
	return iv
}
