// Package pdf assembles composed page images into a single print-ready
// PDF. Pages keep their native pixel dimensions and the output is
// written atomically so a crashed run never leaves a partial file.
package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Options configures one assembly run.
type Options struct {
	// PagePaths are the composed page images in reading order.
	PagePaths []string

	// OutputPath is the final PDF location.
	OutputPath string

	// Title and Author are recorded as document properties.
	Title  string
	Author string

	// ICCProfile names the color profile the print service expects.
	// Recorded as a document property for the press operator.
	ICCProfile string

	// BlankPageSize is the pixel size of the padding page appended when
	// the page count is odd. Zero uses the size of the last page.
	BlankPageSize int
}

// Result is the outcome of an assembly run.
type Result struct {
	OK        bool
	Err       string
	FilePath  string
	PageCount int
}

// Assemble builds the PDF from the page images. An odd page list gets a
// blank white page appended so the physical book has an even count. The
// PDF is staged in a temp file and renamed into place only on success.
func Assemble(opts Options) Result {
	if len(opts.PagePaths) == 0 {
		return Result{Err: "no pages to assemble"}
	}
	for _, p := range opts.PagePaths {
		if _, err := os.Stat(p); err != nil {
			return Result{Err: fmt.Sprintf("page image missing: %v", err)}
		}
	}

	pages := opts.PagePaths
	var cleanup []string
	defer func() {
		for _, p := range cleanup {
			os.Remove(p)
		}
	}()

	if len(pages)%2 != 0 {
		blank, err := writeBlankPage(filepath.Dir(opts.OutputPath), pages[len(pages)-1], opts.BlankPageSize)
		if err != nil {
			return Result{Err: fmt.Sprintf("failed to create padding page: %v", err)}
		}
		cleanup = append(cleanup, blank)
		pages = append(append([]string{}, pages...), blank)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return Result{Err: fmt.Sprintf("failed to create output directory: %v", err)}
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	tmp := opts.OutputPath + ".tmp"
	cleanup = append(cleanup, tmp)

	// nil import parameters keep each page at the image's native size.
	if err := api.ImportImagesFile(pages, tmp, nil, conf); err != nil {
		return Result{Err: fmt.Sprintf("failed to import pages: %v", err)}
	}

	props := map[string]string{}
	if opts.Title != "" {
		props["Title"] = opts.Title
	}
	if opts.Author != "" {
		props["Author"] = opts.Author
	}
	if opts.ICCProfile != "" {
		props["ICCProfile"] = opts.ICCProfile
	}
	if len(props) > 0 {
		if err := api.AddPropertiesFile(tmp, "", props, conf); err != nil {
			return Result{Err: fmt.Sprintf("failed to set document properties: %v", err)}
		}
	}

	count, err := api.PageCountFile(tmp)
	if err != nil {
		return Result{Err: fmt.Sprintf("failed to verify assembled PDF: %v", err)}
	}
	if count != len(pages) {
		return Result{Err: fmt.Sprintf("assembled PDF has %d pages, expected %d", count, len(pages))}
	}

	if err := os.Rename(tmp, opts.OutputPath); err != nil {
		return Result{Err: fmt.Sprintf("failed to finalize PDF: %v", err)}
	}

	return Result{OK: true, FilePath: opts.OutputPath, PageCount: count}
}

// writeBlankPage creates a white PNG matching the size of the reference
// page (or the explicit size) and returns its path.
func writeBlankPage(dir, refPath string, size int) (string, error) {
	w, h := size, size
	if w <= 0 {
		ref, err := os.Open(refPath)
		if err != nil {
			return "", err
		}
		cfg, _, err := image.DecodeConfig(ref)
		ref.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read reference page size: %w", err)
		}
		w, h = cfg.Width, cfg.Height
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = white.R
		img.Pix[i+1] = white.G
		img.Pix[i+2] = white.B
		img.Pix[i+3] = white.A
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "blank-page-*.png")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}
