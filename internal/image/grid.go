// Package image provides the intensity grid analysed by the pipeline and
// loaders that turn gel image files into grids.
package image

import (
	"fmt"
	"image"
	"image/color"
)

// Grid is a 2-D array of 8-bit intensity samples stored row-major.
// Rows run along the migration axis (row 0 is the loading origin) and
// columns run across the gel width.
type Grid struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGrid allocates a zero-filled grid.
func NewGrid(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Grid{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// GridFromRows builds a grid from equally sized rows.
func GridFromRows(rows [][]uint8) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0), nil
	}
	width := len(rows[0])
	g := NewGrid(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d samples, want %d", y, len(row), width)
		}
		copy(g.Pix[y*width:(y+1)*width], row)
	}
	return g, nil
}

// GridFromImage converts any image to a grid using the standard luminance
// weighting of color.GrayModel.
func GridFromImage(img image.Image) *Grid {
	bounds := img.Bounds()
	g := NewGrid(bounds.Dx(), bounds.Dy())

	// Fast path for already-gray images
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < g.Height; y++ {
			off := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(g.Pix[y*g.Width:(y+1)*g.Width], gray.Pix[off:off+g.Width])
		}
		return g
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			g.Pix[y*g.Width+x] = c.Y
		}
	}
	return g
}

// At returns the sample at the given row and column.
func (g *Grid) At(row, col int) uint8 {
	return g.Pix[row*g.Width+col]
}

// Set stores a sample at the given row and column.
func (g *Grid) Set(row, col int, v uint8) {
	g.Pix[row*g.Width+col] = v
}

// Row returns the samples of one row. The slice aliases the grid.
func (g *Grid) Row(row int) []uint8 {
	return g.Pix[row*g.Width : (row+1)*g.Width]
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{Width: g.Width, Height: g.Height, Pix: make([]uint8, len(g.Pix))}
	copy(c.Pix, g.Pix)
	return c
}

// Empty reports whether the grid has no samples.
func (g *Grid) Empty() bool {
	return g == nil || g.Width == 0 || g.Height == 0
}

// ColumnMax returns, for every column, the maximum sample over all rows.
func (g *Grid) ColumnMax() []uint8 {
	out := make([]uint8, g.Width)
	for y := 0; y < g.Height; y++ {
		row := g.Row(y)
		for x, v := range row {
			if v > out[x] {
				out[x] = v
			}
		}
	}
	return out
}

// ToImage returns the grid as an *image.Gray for display by callers.
func (g *Grid) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+g.Width], g.Row(y))
	}
	return img
}
