// Package cvimage loads gel images through OpenCV. It reads formats the
// pure Go decoders cannot (16-bit TIFF scanner output, JPEG 2000, PGM) and
// reduces them to the 8-bit grids used by the analysis pipeline.
package cvimage

import (
	"fmt"

	"gel-analyzer/internal/image"

	"gocv.io/x/gocv"
)

// Load reads an image file in grayscale through OpenCV.
func Load(path string) (*image.Grid, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("failed to read image %s", path)
	}

	return FromMat(mat)
}

// FromMat converts a Mat to a grid. Color Mats are converted to grayscale and
// deeper sample types are scaled to the 0-255 range.
func FromMat(src gocv.Mat) (*image.Grid, error) {
	if src.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		return nil, fmt.Errorf("unsupported channel count %d", src.Channels())
	}

	if gray.Type() != gocv.MatTypeCV8U {
		scaled := gocv.NewMat()
		defer scaled.Close()
		gocv.Normalize(gray, &scaled, 0, 255, gocv.NormMinMax)
		scaled.ConvertTo(&gray, gocv.MatTypeCV8U)
	}

	rows, cols := gray.Rows(), gray.Cols()
	g := image.NewGrid(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			g.Set(y, x, gray.GetUCharAt(y, x))
		}
	}
	return g, nil
}
