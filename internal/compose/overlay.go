// Package compose places text-bearing overlay bands onto press-ready
// page artwork and renders wrapped story text inside them.
package compose

import (
	"fmt"
	"strings"
)

// Position is a named overlay anchor on the page canvas.
type Position string

const (
	PositionBottom      Position = "b"
	PositionTop         Position = "t"
	PositionTopLeft     Position = "tl"
	PositionTopRight    Position = "tr"
	PositionBottomLeft  Position = "bl"
	PositionBottomRight Position = "br"
	PositionTopMax      Position = "topMAX"
	PositionBottomMax   Position = "bottomMAX"
)

// Canvas and band geometry. All positions resolve against the fixed
// print canvas established by prepress.
const (
	CanvasSize = 2433

	overlayWidthPercent  = 0.80
	overlayHeightPercent = 0.30
	overlayMaxHeightPct  = 0.45
	edgeMargin           = 50

	// MaxTextThreshold is the projected text length above which the
	// taller *MAX band variants are used.
	MaxTextThreshold = 450
)

// Rect is a resolved overlay placement in canvas pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Coordinates resolves a named anchor to pixel coordinates on the
// canvas. Band width is 80% of the canvas; height is 30% (45% for *MAX
// variants); placements keep a 50 px margin from the relevant edges and
// center horizontally for plain top/bottom anchors.
func Coordinates(pos Position) (Rect, error) {
	canvas := float64(CanvasSize)
	width := int(overlayWidthPercent * canvas)
	height := int(overlayHeightPercent * canvas)
	maxHeight := int(overlayMaxHeightPct * canvas)

	centerX := (CanvasSize - width) / 2
	rightX := CanvasSize - width - edgeMargin
	bottomY := CanvasSize - height - edgeMargin
	bottomMaxY := CanvasSize - maxHeight - edgeMargin

	switch pos {
	case PositionBottom:
		return Rect{X: centerX, Y: bottomY, Width: width, Height: height}, nil
	case PositionTop:
		return Rect{X: centerX, Y: edgeMargin, Width: width, Height: height}, nil
	case PositionTopLeft:
		return Rect{X: edgeMargin, Y: edgeMargin, Width: width, Height: height}, nil
	case PositionTopRight:
		return Rect{X: rightX, Y: edgeMargin, Width: width, Height: height}, nil
	case PositionBottomLeft:
		return Rect{X: edgeMargin, Y: bottomY, Width: width, Height: height}, nil
	case PositionBottomRight:
		return Rect{X: rightX, Y: bottomY, Width: width, Height: height}, nil
	case PositionTopMax:
		return Rect{X: centerX, Y: edgeMargin, Width: width, Height: maxHeight}, nil
	case PositionBottomMax:
		return Rect{X: centerX, Y: bottomMaxY, Width: width, Height: maxHeight}, nil
	default:
		return Rect{}, fmt.Errorf("unknown overlay position %q", pos)
	}
}

// IsMax reports whether the position uses the taller band variant.
func (p Position) IsMax() bool {
	return strings.HasSuffix(string(p), "MAX")
}

// OptimalPosition picks an overlay anchor for a page. Long text gets a
// *MAX band; otherwise the band alternates between bottom and top by
// page parity so consecutive spreads don't stack text on the same edge.
func OptimalPosition(textLength, pageIndex int) Position {
	if textLength > MaxTextThreshold {
		if pageIndex%2 == 0 {
			return PositionBottomMax
		}
		return PositionTopMax
	}
	if pageIndex%2 == 0 {
		return PositionBottom
	}
	return PositionTop
}

// EnsureEvenPageCount rounds a page count up to the next even number.
// Physical binding requires an even count.
func EnsureEvenPageCount(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}
