// Package preview renders cached sampled fields to images on the CPU. It
// applies the same lookup table mapping as the GPU programs, so a preview
// shows what a slice draw would show without a GL context.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"vaporrender/internal/models"
)

// Viewer maps a sampled field through a colour lookup table
type Viewer struct {
	// field is the resampled data, (value, missing flag) pairs
	field models.SampledField

	// table maps normalized values to colours
	table models.ColorLookupTable

	// opacity scales the alpha of every mapped colour
	opacity float32
}

// NewViewer creates a viewer over a field and its lookup table
func NewViewer(field models.SampledField, table models.ColorLookupTable, opacity float32) (*Viewer, error) {
	if field.Empty() || len(field.Values) != field.Cells()*2 {
		return nil, fmt.Errorf("field has no samples")
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("lookup table is empty")
	}
	return &Viewer{field: field, table: table, opacity: opacity}, nil
}

// Depth returns the number of planes that can be extracted
func (v *Viewer) Depth() int {
	return v.field.Depth
}

// ExtractSlice maps plane k of the field to an image. Row 0 of the image is
// the last lattice row so the in-plane second axis points up. Missing
// samples are transparent.
func (v *Viewer) ExtractSlice(k int) (*image.NRGBA, error) {
	if k < 0 || k >= v.field.Depth {
		return nil, fmt.Errorf("plane %d outside [0,%d)", k, v.field.Depth)
	}

	w, h := v.field.Width, v.field.Height
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			value, missing := v.field.At(i, j, k)
			if missing != 0 {
				continue
			}
			img.SetNRGBA(i, h-1-j, v.Color(value))
		}
	}
	return img, nil
}

// Color returns the lookup table colour of a data value
func (v *Viewer) Color(value float32) color.NRGBA {
	n := v.table.Len()
	t := 0.0
	if span := v.table.Max - v.table.Min; span > 0 {
		t = (float64(value) - v.table.Min) / span
	}
	idx := min(int(clamp01(t)*float64(n)), n-1)
	r, g, b, a := v.table.Entry(idx)
	return color.NRGBA{
		R: channel(r),
		G: channel(g),
		B: channel(b),
		A: channel(a * v.opacity),
	}
}

// Scale resizes an image to fit a size x size square, keeping its aspect ratio
func Scale(src image.Image, size int) image.Image {
	b := src.Bounds()
	if size <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return src
	}
	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, size*b.Dy()/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, size*b.Dx()/b.Dy())
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// SaveSlice writes an image as PNG, or JPEG for .jpg and .jpeg names
func SaveSlice(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("error creating preview directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// SaveSliceSequence writes every plane of the field, scaled to size
func (v *Viewer) SaveSliceSequence(outputDir string, size int) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for k := 0; k < v.field.Depth; k++ {
		img, err := v.ExtractSlice(k)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%03d.png", k))
		if err := SaveSlice(Scale(img, size), filename); err != nil {
			return err
		}
	}

	return nil
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

func channel(c float32) uint8 {
	return uint8(math.Round(clamp01(float64(c)) * 255))
}
