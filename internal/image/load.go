package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned by Load for extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// decoders maps lowercase file extensions to the registered image format.
var decoders = map[string]string{
	".tif":  "tiff",
	".tiff": "tiff",
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".bmp":  "bmp",
}

// Format returns the image format Load uses for path, chosen by extension.
func Format(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name, ok := decoders[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return name, nil
}

// Load decodes a gel image file and converts it to a grayscale grid.
// Files are rejected by extension before they are opened.
func Load(path string) (*Grid, error) {
	if _, err := Format(path); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads an encoded image from r and converts it to a grid.
func Decode(r io.Reader) (*Grid, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return GridFromImage(img), nil
}
