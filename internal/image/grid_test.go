package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridFromRows(t *testing.T) {
	g, err := GridFromRows([][]uint8{
		{1, 2, 3},
		{4, 5, 6},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, g.Width)
	assert.Equal(t, 2, g.Height)
	assert.Equal(t, uint8(6), g.At(1, 2))
	assert.Equal(t, []uint8{4, 5, 6}, g.Row(1))
}

func TestGridFromRowsRagged(t *testing.T) {
	_, err := GridFromRows([][]uint8{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestColumnMax(t *testing.T) {
	g, err := GridFromRows([][]uint8{
		{1, 9, 3},
		{7, 5, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint8{7, 9, 3}, g.ColumnMax())
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGrid(2, 2)
	c := g.Clone()
	c.Set(0, 0, 42)

	assert.Equal(t, uint8(0), g.At(0, 0))
	assert.Equal(t, uint8(42), c.At(0, 0))
}

func TestGridFromImageGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 2))
	src.SetGray(2, 1, color.Gray{Y: 200})

	g := GridFromImage(src)
	assert.Equal(t, uint8(200), g.At(1, 2))
	assert.Equal(t, src.Pix, g.ToImage().Pix)
}

func TestGridFromImageRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	g := GridFromImage(src)
	assert.Equal(t, uint8(0), g.At(0, 0))
	assert.Equal(t, uint8(255), g.At(0, 1))
}

func TestDecodePNG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 3))
	src.SetGray(1, 2, color.Gray{Y: 77})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	g, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Width)
	assert.Equal(t, 3, g.Height)
	assert.Equal(t, uint8(77), g.At(2, 1))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"gel.TIF", "tiff"},
		{"scan.tiff", "tiff"},
		{"gel.bmp", "bmp"},
		{"dir.v2/gel.JPG", "jpeg"},
		{"gel.png", "png"},
	}
	for _, tt := range tests {
		got, err := Format(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := Format("gel.gif")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Format("gel")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gel.gif")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a"), 0644))

	_, err := Load(path)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadPNG(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 2))
	src.SetGray(2, 1, color.Gray{Y: 9})
	path := filepath.Join(t.TempDir(), "gel.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	g, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, uint8(9), g.At(1, 2))
}
