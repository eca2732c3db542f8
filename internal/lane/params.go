package lane

// Params holds parameters for lane segmentation.
type Params struct {
	// Relative tolerance on run width versus the mean lane width.
	// A run is accepted when |width - mean| < Proc*mean.
	Proc float64 `yaml:"proc" json:"proc"`

	// Relative levels between the column profile minimum and maximum.
	// HighTh binarizes the profile for width estimation; LowTh bounds the sweep.
	HighTh float64 `yaml:"high_threshold" json:"high_threshold"`
	LowTh  float64 `yaml:"low_threshold" json:"low_threshold"`

	// Mean lane width in columns. Zero means estimate it from the image.
	MeanWidth float64 `yaml:"mean_width,omitempty" json:"mean_width,omitempty"`
}

// DefaultParams returns default lane segmentation parameters.
func DefaultParams() Params {
	return Params{
		Proc:   0.25,
		HighTh: 0.70,
		LowTh:  0.15,
	}
}

// WithMeanWidth returns a copy of params that reuses a previously computed
// mean lane width instead of estimating one.
func (p Params) WithMeanWidth(width float64) Params {
	p.MeanWidth = width
	return p
}

// WithTolerance returns a copy of params with a custom width tolerance.
func (p Params) WithTolerance(proc float64) Params {
	p.Proc = proc
	return p
}

// WithThresholds returns a copy of params with custom relative thresholds.
func (p Params) WithThresholds(high, low float64) Params {
	p.HighTh = high
	p.LowTh = low
	return p
}
