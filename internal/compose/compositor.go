package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/jpeg" // register decoder

	xdraw "golang.org/x/image/draw"
)

// Options configures one page composition.
type Options struct {
	// BaseImage is the press-ready page artwork, already sized to the
	// print canvas.
	BaseImage []byte

	// OverlayPath is the overlay band asset for the resolved position.
	OverlayPath string

	// Text is the story text rendered inside the band. Empty text still
	// composites the band (title pages use bands without copy).
	Text string

	// Position anchors the band on the canvas.
	Position Position

	// TextConfig controls font, wrap width, and color. Zero value uses
	// DefaultTextConfig.
	TextConfig TextConfig
}

// Result is the outcome of composing one page. Asset and geometry
// problems are reported in Err so the pipeline can fail a single page
// without an error-typed control flow.
type Result struct {
	OK       bool
	Err      string
	Image    []byte // PNG, same dimensions as the base image
	Position Position
	Rect     Rect
}

// ComposePage overlays the band asset onto the base artwork at the
// resolved anchor and renders the wrapped text inside it.
func ComposePage(opts Options) Result {
	rect, err := Coordinates(opts.Position)
	if err != nil {
		return Result{Err: err.Error(), Position: opts.Position}
	}

	base, _, err := image.Decode(bytes.NewReader(opts.BaseImage))
	if err != nil {
		return Result{Err: fmt.Sprintf("unable to decode base image: %v", err), Position: opts.Position}
	}
	bounds := base.Bounds()
	if bounds.Dx() < rect.X+rect.Width || bounds.Dy() < rect.Y+rect.Height {
		return Result{
			Err:      fmt.Sprintf("base image %dx%d too small for overlay at (%d,%d) %dx%d", bounds.Dx(), bounds.Dy(), rect.X, rect.Y, rect.Width, rect.Height),
			Position: opts.Position,
		}
	}

	overlayRaw, err := os.ReadFile(opts.OverlayPath)
	if err != nil {
		return Result{Err: fmt.Sprintf("overlay asset unavailable: %v", err), Position: opts.Position}
	}
	overlay, _, err := image.Decode(bytes.NewReader(overlayRaw))
	if err != nil {
		return Result{Err: fmt.Sprintf("unable to decode overlay asset: %v", err), Position: opts.Position}
	}

	canvas := image.NewNRGBA(bounds)
	xdraw.Draw(canvas, bounds, base, bounds.Min, xdraw.Src)

	region := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height)
	xdraw.CatmullRom.Scale(canvas, region, overlay, overlay.Bounds(), xdraw.Over, nil)

	if opts.Text != "" {
		cfg := opts.TextConfig
		if cfg.FontSize == 0 {
			cfg = DefaultTextConfig()
		}
		if err := renderText(canvas, region, opts.Text, cfg); err != nil {
			return Result{Err: err.Error(), Position: opts.Position, Rect: rect}
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return Result{Err: fmt.Sprintf("failed to encode composed page: %v", err), Position: opts.Position, Rect: rect}
	}

	return Result{
		OK:       true,
		Image:    out.Bytes(),
		Position: opts.Position,
		Rect:     rect,
	}
}
