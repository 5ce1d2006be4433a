// Package prepress turns approved page artwork into press-ready
// canvases: content is shrunk by the bleed percentage, padded with the
// artwork's own dominant edge color, and composited onto the exact
// printer canvas so the physical cut never slices story art.
package prepress

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/jpeg" // register decoder

	xdraw "golang.org/x/image/draw"
)

// Options configures bleed processing for one page image.
type Options struct {
	// BleedPercent is how much the source content shrinks to make room
	// for the bleed padding.
	BleedPercent float64

	// TargetWidth and TargetHeight are the output canvas dimensions.
	TargetWidth  int
	TargetHeight int

	// EdgeSampleSize is the border strip thickness, in pixels, sampled
	// for dominant-color detection.
	EdgeSampleSize int
}

// DefaultOptions returns the canonical print options: 3.5% bleed onto a
// 2433x2433 canvas (206 mm square at 300 DPI).
func DefaultOptions() Options {
	return Options{
		BleedPercent:   3.5,
		TargetWidth:    MMToPixels(TrimWithBleedMM, PrintDPI),
		TargetHeight:   MMToPixels(TrimWithBleedMM, PrintDPI),
		EdgeSampleSize: 24,
	}
}

// Result is the outcome of bleed processing. Geometry failures are
// captured here rather than returned as errors so a pipeline stage can
// decide per-page whether to skip, substitute, or fail the story.
type Result struct {
	OK                  bool
	Err                 string
	Image               []byte // PNG, exactly TargetWidth x TargetHeight
	Width               int
	Height              int
	AppliedBleedPercent float64
	EdgeColor           string // hex, e.g. "#1a2b3c"
}

// NeutralEdgeColor is returned when every sampled border pixel is
// near-white. Padding with gray instead of white keeps the extended
// area visually distinct from blown-out highlights.
const NeutralEdgeColor = "#d0d0d0"

// DefaultDimensionTolerance is the pixel slack allowed when validating
// press-ready output against the target canvas.
const DefaultDimensionTolerance = 5

// Apply shrinks the source content by the bleed percentage, pads with
// the dominant edge color, and composites onto the target canvas.
func Apply(buf []byte, opts Options) Result {
	if opts.TargetWidth <= 0 || opts.TargetHeight <= 0 {
		d := DefaultOptions()
		if opts.TargetWidth <= 0 {
			opts.TargetWidth = d.TargetWidth
		}
		if opts.TargetHeight <= 0 {
			opts.TargetHeight = d.TargetHeight
		}
	}
	if opts.EdgeSampleSize <= 0 {
		opts.EdgeSampleSize = DefaultOptions().EdgeSampleSize
	}
	if opts.BleedPercent < 0 || opts.BleedPercent >= 100 {
		return Result{Err: fmt.Sprintf("invalid bleed percent %.2f", opts.BleedPercent)}
	}

	src, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return Result{Err: fmt.Sprintf("unable to read source image dimensions: %v", err)}
	}

	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return Result{Err: "source image has zero dimensions"}
	}

	shrinkFactor := (100 - opts.BleedPercent) / 100
	shrunkW := int(math.Round(float64(srcW) * shrinkFactor))
	shrunkH := int(math.Round(float64(srcH) * shrinkFactor))
	if shrunkW > opts.TargetWidth {
		shrunkW = opts.TargetWidth
	}
	if shrunkH > opts.TargetHeight {
		shrunkH = opts.TargetHeight
	}

	edge := DetectDominantEdgeColor(src, opts.EdgeSampleSize)

	canvas := image.NewNRGBA(image.Rect(0, 0, opts.TargetWidth, opts.TargetHeight))
	xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(mustParseHex(edge)), image.Point{}, xdraw.Src)

	// Padding splits as evenly as possible: floor on the leading edge,
	// remainder on the trailing edge.
	padX := (opts.TargetWidth - shrunkW) / 2
	padY := (opts.TargetHeight - shrunkH) / 2
	dst := image.Rect(padX, padY, padX+shrunkW, padY+shrunkH)
	xdraw.CatmullRom.Scale(canvas, dst, src, bounds, xdraw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return Result{Err: fmt.Sprintf("failed to encode output: %v", err)}
	}

	return Result{
		OK:                  true,
		Image:               out.Bytes(),
		Width:               opts.TargetWidth,
		Height:              opts.TargetHeight,
		AppliedBleedPercent: opts.BleedPercent,
		EdgeColor:           edge,
	}
}

// DetectDominantEdgeColor samples four border strips and returns the
// most frequent non-near-white color as a hex string. Near-white pixels
// (R, G, B all above 240) are discarded to avoid bias toward white page
// backgrounds; if nothing else is found the neutral gray fallback is
// returned.
func DetectDominantEdgeColor(img image.Image, sampleSize int) string {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return NeutralEdgeColor
	}

	thickX := min(sampleSize, w/4)
	thickY := min(sampleSize, h/4)
	if thickX < 1 {
		thickX = 1
	}
	if thickY < 1 {
		thickY = 1
	}

	counts := make(map[string]int)
	sample := func(x, y int) {
		r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
		r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
		if r8 > 240 && g8 > 240 && b8 > 240 {
			return
		}
		counts[fmt.Sprintf("#%02x%02x%02x", r8, g8, b8)]++
	}

	// Top and bottom strips.
	for y := 0; y < thickY; y++ {
		for x := 0; x < w; x++ {
			sample(x, y)
			sample(x, h-1-y)
		}
	}
	// Left and right strips, skipping rows already covered.
	for y := thickY; y < h-thickY; y++ {
		for x := 0; x < thickX; x++ {
			sample(x, y)
			sample(w-1-x, y)
		}
	}

	best := ""
	bestCount := 0
	for hex, count := range counts {
		if count > bestCount || (count == bestCount && hex < best) {
			best = hex
			bestCount = count
		}
	}
	if best == "" {
		return NeutralEdgeColor
	}
	return best
}

// ValidatePrintDimensions reports whether width and height match the
// expected print dimensions within tolerance.
func ValidatePrintDimensions(width, height, expectedW, expectedH, tolerance int) bool {
	return abs(width-expectedW) <= tolerance && abs(height-expectedH) <= tolerance
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// mustParseHex parses a #rrggbb string, falling back to neutral gray on
// malformed input.
func mustParseHex(hex string) color.NRGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{R: 0xd0, G: 0xd0, B: 0xd0, A: 0xff}
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
