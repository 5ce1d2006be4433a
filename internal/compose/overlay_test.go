package compose

import "testing"

func TestCoordinates(t *testing.T) {
	// Derived from the 2433px canvas: band 1946x729 (tall variant
	// 1094), 50px edge margins, centered X at 243.
	tests := []struct {
		pos  Position
		want Rect
	}{
		{PositionBottom, Rect{X: 243, Y: 1654, Width: 1946, Height: 729}},
		{PositionTop, Rect{X: 243, Y: 50, Width: 1946, Height: 729}},
		{PositionTopLeft, Rect{X: 50, Y: 50, Width: 1946, Height: 729}},
		{PositionTopRight, Rect{X: 437, Y: 50, Width: 1946, Height: 729}},
		{PositionBottomLeft, Rect{X: 50, Y: 1654, Width: 1946, Height: 729}},
		{PositionBottomRight, Rect{X: 437, Y: 1654, Width: 1946, Height: 729}},
		{PositionTopMax, Rect{X: 243, Y: 50, Width: 1946, Height: 1094}},
		{PositionBottomMax, Rect{X: 243, Y: 1289, Width: 1946, Height: 1094}},
	}

	for _, tt := range tests {
		t.Run(string(tt.pos), func(t *testing.T) {
			got, err := Coordinates(tt.pos)
			if err != nil {
				t.Fatalf("Coordinates(%s) error = %v", tt.pos, err)
			}
			if got != tt.want {
				t.Errorf("Coordinates(%s) = %+v, want %+v", tt.pos, got, tt.want)
			}
		})
	}

	t.Run("band stays on canvas", func(t *testing.T) {
		for _, tt := range tests {
			r, _ := Coordinates(tt.pos)
			if r.X < 0 || r.Y < 0 || r.X+r.Width > CanvasSize || r.Y+r.Height > CanvasSize {
				t.Errorf("%s band %+v leaves the canvas", tt.pos, r)
			}
		}
	})

	t.Run("unknown position errors", func(t *testing.T) {
		if _, err := Coordinates(Position("middle")); err == nil {
			t.Error("Coordinates(middle) error = nil, want error")
		}
	})
}

func TestIsMax(t *testing.T) {
	if !PositionTopMax.IsMax() || !PositionBottomMax.IsMax() {
		t.Error("MAX variants not detected")
	}
	if PositionBottom.IsMax() || PositionTopRight.IsMax() {
		t.Error("standard positions detected as MAX")
	}
}

func TestOptimalPosition(t *testing.T) {
	tests := []struct {
		name       string
		textLength int
		pageIndex  int
		want       Position
	}{
		{"short text even page", 120, 0, PositionBottom},
		{"short text odd page", 120, 1, PositionTop},
		{"threshold exactly is standard", MaxTextThreshold, 2, PositionBottom},
		{"long text even page", MaxTextThreshold + 1, 0, PositionBottomMax},
		{"long text odd page", 900, 3, PositionTopMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OptimalPosition(tt.textLength, tt.pageIndex); got != tt.want {
				t.Errorf("OptimalPosition(%d, %d) = %s, want %s", tt.textLength, tt.pageIndex, got, tt.want)
			}
		})
	}

	t.Run("deterministic", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			if OptimalPosition(100, 4) != OptimalPosition(100, 4) {
				t.Fatal("OptimalPosition not deterministic")
			}
		}
	})
}

func TestEnsureEvenPageCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{1, 2},
		{7, 8},
		{8, 8},
		{12, 12},
		{13, 14},
	}
	for _, tt := range tests {
		if got := EnsureEvenPageCount(tt.in); got != tt.want {
			t.Errorf("EnsureEvenPageCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		for n := 0; n < 20; n++ {
			once := EnsureEvenPageCount(n)
			if EnsureEvenPageCount(once) != once {
				t.Errorf("EnsureEvenPageCount(%d) not idempotent", n)
			}
		}
	})
}
