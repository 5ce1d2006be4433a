package compose

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// TextConfig controls how story text is rendered inside an overlay band.
type TextConfig struct {
	FontFamily       string  // reserved; the bundled face is used today
	FontSize         float64 // points at 72 DPI
	LineSpacing      int     // vertical advance per line, px
	TextColor        string  // hex, e.g. "#333333"
	TextWidthPercent float64 // legible width fraction of the band
	BorderPercent    float64 // top margin fraction of the band height
}

// DefaultTextConfig returns the render settings used for interior pages.
func DefaultTextConfig() TextConfig {
	return TextConfig{
		FontSize:         64,
		LineSpacing:      86,
		TextColor:        "#1f1f1f",
		TextWidthPercent: 0.86,
		BorderPercent:    0.12,
	}
}

var (
	fontOnce   sync.Once
	parsedFont *opentype.Font
	fontErr    error
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = opentype.Parse(goregular.TTF)
	})
	return parsedFont, fontErr
}

func newFace(size float64) (font.Face, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// WrapText greedily wraps text into lines no wider than maxWidth pixels
// when measured with the given face. A word is appended to the current
// line while the measured line still fits; on overflow the line is
// flushed and the word starts the next one.
func WrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	d := &font.Drawer{Face: face}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if d.MeasureString(candidate).Ceil() <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// renderText draws wrapped text into dst within region. The text block
// stays inside the safe sub-rectangle defined by TextWidthPercent and
// BorderPercent; lines that would overflow the region bottom are
// reported as an error so callers can retry with a taller band.
func renderText(dst *image.NRGBA, region image.Rectangle, text string, cfg TextConfig) error {
	face, err := newFace(cfg.FontSize)
	if err != nil {
		return err
	}
	defer face.Close()

	regW := region.Dx()
	regH := region.Dy()

	safeW := int(float64(regW) * cfg.TextWidthPercent)
	topMargin := int(float64(regH) * cfg.BorderPercent)
	leftInset := (regW - safeW) / 2

	lines := WrapText(face, text, safeW)
	if len(lines) == 0 {
		return nil
	}

	lineSpacing := cfg.LineSpacing
	if lineSpacing <= 0 {
		lineSpacing = face.Metrics().Height.Ceil()
	}

	needed := topMargin + len(lines)*lineSpacing
	if needed > regH {
		return fmt.Errorf("text block (%d lines, %d px) exceeds overlay band height %d px", len(lines), needed, regH)
	}

	col, err := parseHexColor(cfg.TextColor)
	if err != nil {
		return err
	}

	ascent := face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}
	for i, line := range lines {
		// Center each line inside the safe width.
		lineW := d.MeasureString(line).Ceil()
		x := region.Min.X + leftInset + (safeW-lineW)/2
		y := region.Min.Y + topMargin + ascent + i*lineSpacing
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}
	return nil
}

func parseHexColor(hex string) (color.NRGBA, error) {
	if hex == "" {
		return color.NRGBA{A: 0xff}, nil
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid text color %q: %w", hex, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}
