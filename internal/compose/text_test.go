package compose

import (
	"strings"
	"testing"

	"golang.org/x/image/font"
)

func testFace(t *testing.T) font.Face {
	t.Helper()
	face, err := newFace(24)
	if err != nil {
		t.Fatalf("newFace() error = %v", err)
	}
	t.Cleanup(func() { face.Close() })
	return face
}

func TestWrapText(t *testing.T) {
	face := testFace(t)
	d := &font.Drawer{Face: face}

	t.Run("empty text yields no lines", func(t *testing.T) {
		if lines := WrapText(face, "", 500); lines != nil {
			t.Errorf("WrapText() = %v, want nil", lines)
		}
		if lines := WrapText(face, "   ", 500); lines != nil {
			t.Errorf("WrapText(whitespace) = %v, want nil", lines)
		}
	})

	t.Run("short text stays on one line", func(t *testing.T) {
		lines := WrapText(face, "hello world", 2000)
		if len(lines) != 1 || lines[0] != "hello world" {
			t.Errorf("WrapText() = %v, want single line", lines)
		}
	})

	t.Run("every line fits the width", func(t *testing.T) {
		text := "the quick brown fox jumps over the lazy dog again and again until the page is full"
		maxWidth := 300
		lines := WrapText(face, text, maxWidth)
		if len(lines) < 2 {
			t.Fatalf("WrapText() = %d lines, want wrapping", len(lines))
		}
		for _, line := range lines {
			if w := d.MeasureString(line).Ceil(); w > maxWidth {
				t.Errorf("line %q measures %d, over limit %d", line, w, maxWidth)
			}
		}
	})

	t.Run("no words are lost or reordered", func(t *testing.T) {
		text := "one two three four five six seven eight nine ten"
		lines := WrapText(face, text, 150)
		if got := strings.Join(lines, " "); got != text {
			t.Errorf("rejoined = %q, want %q", got, text)
		}
	})

	t.Run("greedy packing fills each line", func(t *testing.T) {
		// The first line plus the first word of the second line must
		// overflow, otherwise the wrap was not greedy.
		lines := WrapText(face, "alpha beta gamma delta epsilon zeta eta theta", 250)
		if len(lines) < 2 {
			t.Skip("text did not wrap at this width")
		}
		firstWordNext := strings.Fields(lines[1])[0]
		if w := d.MeasureString(lines[0] + " " + firstWordNext).Ceil(); w <= 250 {
			t.Errorf("line %q could have taken %q (%d <= 250)", lines[0], firstWordNext, w)
		}
	})

	t.Run("oversized single word gets its own line", func(t *testing.T) {
		lines := WrapText(face, "tiny incomprehensibilities tiny", 100)
		found := false
		for _, line := range lines {
			if line == "incomprehensibilities" {
				found = true
			}
		}
		if !found {
			t.Errorf("WrapText() = %v, want the long word on its own line", lines)
		}
	})
}

func TestParseHexColor(t *testing.T) {
	t.Run("parses rgb hex", func(t *testing.T) {
		c, err := parseHexColor("#1a2b3c")
		if err != nil {
			t.Fatalf("parseHexColor() error = %v", err)
		}
		if c.R != 0x1a || c.G != 0x2b || c.B != 0x3c || c.A != 0xff {
			t.Errorf("parseHexColor() = %+v, want 1a2b3c opaque", c)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		if _, err := parseHexColor("red"); err == nil {
			t.Error("parseHexColor(red) error = nil, want error")
		}
	})

	t.Run("empty defaults to black", func(t *testing.T) {
		c, err := parseHexColor("")
		if err != nil {
			t.Fatalf("parseHexColor() error = %v", err)
		}
		if c.R != 0 || c.G != 0 || c.B != 0 || c.A != 0xff {
			t.Errorf("parseHexColor(\"\") = %+v, want opaque black", c)
		}
	})
}
