package prepress

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestMMToPixels(t *testing.T) {
	t.Run("print canvas is 2433px square", func(t *testing.T) {
		if got := MMToPixels(TrimWithBleedMM, PrintDPI); got != 2433 {
			t.Errorf("MMToPixels(206, 300) = %d, want 2433", got)
		}
	})

	t.Run("round trips within rounding error", func(t *testing.T) {
		px := MMToPixels(100, PrintDPI)
		mm := PixelsToMM(px, PrintDPI)
		if mm < 99.9 || mm > 100.1 {
			t.Errorf("PixelsToMM(MMToPixels(100)) = %f, want ~100", mm)
		}
	})
}

func TestApply(t *testing.T) {
	blue := color.NRGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff}

	t.Run("output matches target canvas with edge color padding", func(t *testing.T) {
		src := encodePNG(t, solidImage(200, 200, blue))
		opts := Options{BleedPercent: 3.5, TargetWidth: 300, TargetHeight: 300, EdgeSampleSize: 8}

		result := Apply(src, opts)
		if !result.OK {
			t.Fatalf("Apply() failed: %s", result.Err)
		}
		if result.Width != 300 || result.Height != 300 {
			t.Errorf("output = %dx%d, want 300x300", result.Width, result.Height)
		}
		if result.AppliedBleedPercent != 3.5 {
			t.Errorf("AppliedBleedPercent = %f, want 3.5", result.AppliedBleedPercent)
		}
		if result.EdgeColor != "#204080" {
			t.Errorf("EdgeColor = %s, want #204080", result.EdgeColor)
		}

		out, err := png.Decode(bytes.NewReader(result.Image))
		if err != nil {
			t.Fatalf("png.Decode(output) error = %v", err)
		}
		b := out.Bounds()
		if b.Dx() != 300 || b.Dy() != 300 {
			t.Errorf("decoded output = %dx%d, want 300x300", b.Dx(), b.Dy())
		}

		// Corners sit in the padding band and carry the edge color.
		r, g, bl, _ := out.At(0, 0).RGBA()
		if uint8(r>>8) != blue.R || uint8(g>>8) != blue.G || uint8(bl>>8) != blue.B {
			t.Errorf("corner = #%02x%02x%02x, want #204080", uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	})

	t.Run("defaults produce the print canvas", func(t *testing.T) {
		src := encodePNG(t, solidImage(200, 200, blue))
		result := Apply(src, Options{BleedPercent: 3.5})
		if !result.OK {
			t.Fatalf("Apply() failed: %s", result.Err)
		}
		if result.Width != 2433 || result.Height != 2433 {
			t.Errorf("output = %dx%d, want 2433x2433", result.Width, result.Height)
		}
	})

	t.Run("rejects invalid bleed percent", func(t *testing.T) {
		src := encodePNG(t, solidImage(10, 10, blue))
		if result := Apply(src, Options{BleedPercent: -1, TargetWidth: 50, TargetHeight: 50}); result.OK {
			t.Error("Apply() ok with negative bleed, want failure")
		}
		if result := Apply(src, Options{BleedPercent: 100, TargetWidth: 50, TargetHeight: 50}); result.OK {
			t.Error("Apply() ok with 100% bleed, want failure")
		}
	})

	t.Run("rejects undecodable input", func(t *testing.T) {
		result := Apply([]byte("not an image"), Options{BleedPercent: 3.5, TargetWidth: 50, TargetHeight: 50})
		if result.OK {
			t.Error("Apply() ok on garbage input, want failure")
		}
	})
}

func TestDetectDominantEdgeColor(t *testing.T) {
	t.Run("solid color wins", func(t *testing.T) {
		img := solidImage(100, 100, color.NRGBA{R: 0xaa, G: 0x10, B: 0x22, A: 0xff})
		if got := DetectDominantEdgeColor(img, 8); got != "#aa1022" {
			t.Errorf("DetectDominantEdgeColor() = %s, want #aa1022", got)
		}
	})

	t.Run("near-white pixels are ignored", func(t *testing.T) {
		img := solidImage(100, 100, color.NRGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff})
		// A thin colored stripe inside the sampled band.
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, 0, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
		}
		if got := DetectDominantEdgeColor(img, 8); got != "#112233" {
			t.Errorf("DetectDominantEdgeColor() = %s, want #112233", got)
		}
	})

	t.Run("all near-white falls back to neutral gray", func(t *testing.T) {
		img := solidImage(100, 100, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		if got := DetectDominantEdgeColor(img, 8); got != NeutralEdgeColor {
			t.Errorf("DetectDominantEdgeColor() = %s, want %s", got, NeutralEdgeColor)
		}
	})

	t.Run("center color does not leak into the sample", func(t *testing.T) {
		img := solidImage(100, 100, color.NRGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff})
		// Large center block in a different color, outside the border strips.
		for y := 30; y < 70; y++ {
			for x := 30; x < 70; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: 0x80, G: 0x00, B: 0x00, A: 0xff})
			}
		}
		if got := DetectDominantEdgeColor(img, 8); got != "#008000" {
			t.Errorf("DetectDominantEdgeColor() = %s, want #008000", got)
		}
	})
}

func TestValidatePrintDimensions(t *testing.T) {
	if !ValidatePrintDimensions(2433, 2433, 2433, 2433, 0) {
		t.Error("exact match rejected")
	}
	if !ValidatePrintDimensions(2430, 2436, 2433, 2433, 3) {
		t.Error("within tolerance rejected")
	}
	if ValidatePrintDimensions(2400, 2433, 2433, 2433, 3) {
		t.Error("out of tolerance accepted")
	}
}
