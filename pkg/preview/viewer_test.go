package preview

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"vaporrender/internal/models"
)

// grayTable is a two-entry black to white ramp over [0, 1]
func grayTable() models.ColorLookupTable {
	return models.ColorLookupTable{
		RGBA: []float32{0, 0, 0, 1, 1, 1, 1, 1},
		Min:  0,
		Max:  1,
	}
}

// rampField fills a field with value i/(w-1) and marks cell (0,0,k) missing
func rampField(w, h, d int) models.SampledField {
	f := models.NewSampledField(w, h, d)
	for k := 0; k < d; k++ {
		for j := 0; j < h; j++ {
			for i := 0; i < w; i++ {
				idx := f.Index(i, j, k)
				if i == 0 && j == 0 {
					f.Values[idx] = models.MissingSentinel
					f.Values[idx+1] = 1
					continue
				}
				f.Values[idx] = float32(i) / float32(w-1)
			}
		}
	}
	return f
}

// TestNewViewer verifies input validation
func TestNewViewer(t *testing.T) {
	if _, err := NewViewer(models.SampledField{}, grayTable(), 1); err == nil {
		t.Error("Expected error for empty field, got nil")
	}

	if _, err := NewViewer(rampField(2, 2, 1), models.ColorLookupTable{}, 1); err == nil {
		t.Error("Expected error for empty lookup table, got nil")
	}

	v, err := NewViewer(rampField(4, 4, 3), grayTable(), 1)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	if v.Depth() != 3 {
		t.Errorf("Expected depth 3, got %d", v.Depth())
	}
}

// TestExtractSlice verifies the lookup table mapping and missing samples
func TestExtractSlice(t *testing.T) {
	v, err := NewViewer(rampField(4, 3, 1), grayTable(), 1)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	img, err := v.ExtractSlice(0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("Expected 4x3 image, got %v", img.Bounds())
	}

	// lattice row 0 is the bottom image row
	if a := img.NRGBAAt(0, 2).A; a != 0 {
		t.Errorf("Expected missing sample to be transparent, got alpha %d", a)
	}

	if c := img.NRGBAAt(3, 2); c.R != 255 || c.A != 255 {
		t.Errorf("Expected opaque white at the maximum, got %v", c)
	}

	if c := img.NRGBAAt(0, 0); c.R != 0 || c.A != 255 {
		t.Errorf("Expected opaque black at the minimum, got %v", c)
	}

	if _, err := v.ExtractSlice(1); err == nil {
		t.Error("Expected error for plane outside the field, got nil")
	}
}

// TestColorOpacityAndClamp verifies opacity scaling and out-of-range values
func TestColorOpacityAndClamp(t *testing.T) {
	v, err := NewViewer(rampField(2, 2, 1), grayTable(), 0.5)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if c := v.Color(7); c.R != 255 || c.A != 128 {
		t.Errorf("Expected clamped white at half opacity, got %v", c)
	}

	if c := v.Color(-3); c.R != 0 {
		t.Errorf("Expected clamped black, got %v", c)
	}
}

// TestColorMatchesNearestTexel verifies entries are picked like a nearest-filtered 1D texture
func TestColorMatchesNearestTexel(t *testing.T) {
	table := models.ColorLookupTable{
		RGBA: []float32{0, 0, 0, 1, 0.5, 0.5, 0.5, 1, 1, 1, 1, 1},
		Min:  0,
		Max:  1,
	}
	v, err := NewViewer(rampField(2, 2, 1), table, 1)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	// three texels cover [0,1/3), [1/3,2/3), [2/3,1]
	cases := []struct {
		value float32
		want  uint8
	}{
		{0.3, 0},
		{0.34, 128},
		{0.6, 128},
		{0.7, 255},
		{1, 255},
	}
	for _, c := range cases {
		if got := v.Color(c.value).R; got != c.want {
			t.Errorf("Expected red %d for value %v, got %d", c.want, c.value, got)
		}
	}
}

// TestScale verifies the aspect ratio is kept
func TestScale(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	dst := Scale(src, 100)

	if dst.Bounds().Dx() != 100 || dst.Bounds().Dy() != 50 {
		t.Errorf("Expected 100x50 image, got %v", dst.Bounds())
	}

	if Scale(src, 0) != image.Image(src) {
		t.Error("Expected non-positive size to return the source image")
	}
}

// TestSaveSliceSequence verifies one file per plane
func TestSaveSliceSequence(t *testing.T) {
	v, err := NewViewer(rampField(4, 4, 3), grayTable(), 1)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "planes")
	if err := v.SaveSliceSequence(dir, 16); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for _, name := range []string{"slice_000.png", "slice_001.png", "slice_002.png"} {
		file, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Expected %s to exist: %v", name, err)
		}
		img, err := png.Decode(file)
		file.Close()
		if err != nil {
			t.Fatalf("Failed to decode %s: %v", name, err)
		}
		if img.Bounds().Dx() != 16 {
			t.Errorf("Expected width 16 for %s, got %d", name, img.Bounds().Dx())
		}
	}
}

// TestSaveSliceJPEG verifies the encoder follows the extension
func TestSaveSliceJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slice.jpg")
	if err := SaveSlice(image.NewNRGBA(image.Rect(0, 0, 8, 8)), path); err != nil {
		t.Fatalf("Failed to save slice: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read slice: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("Expected JPEG magic bytes")
	}
}
