package prepress

import "math"

// PrintDPI is the canonical resolution used throughout the pipeline.
const PrintDPI = 300

// TrimWithBleedMM is the physical page size including bleed: a 200 mm
// trim plus 3 mm bleed per edge.
const TrimWithBleedMM = 206.0

// MMToPixels converts millimeters to pixels at the given resolution.
func MMToPixels(mm float64, dpi int) int {
	return int(math.Round(mm * float64(dpi) / 25.4))
}

// PixelsToMM converts pixels to millimeters at the given resolution.
func PixelsToMM(px int, dpi int) float64 {
	return float64(px) * 25.4 / float64(dpi)
}
