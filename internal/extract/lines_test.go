package extract

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func run(s string, x, y, w, fontSize float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: fontSize}
}

func TestGroupIntoLines(t *testing.T) {
	texts := []pdf.Text{
		run("world", 60, 700, 30, 12),
		run("Hello", 20, 701, 30, 12),
		run("Second", 20, 680, 40, 12),
		run("  ", 20, 660, 10, 12),
	}

	lines := groupIntoLines(texts)
	if len(lines) != 2 {
		t.Fatalf("grouped %d lines, want 2", len(lines))
	}

	// Top of page first, runs ordered left to right
	if got := lineText(lines[0]); got != "Hello world" {
		t.Errorf("first line = %q", got)
	}
	if got := lineText(lines[1]); got != "Second" {
		t.Errorf("second line = %q", got)
	}
}

func TestLineTextWordGaps(t *testing.T) {
	// Adjacent runs with no horizontal gap join without a space
	ln := line{baseline: 700, height: 12, runs: []pdf.Text{
		run("Val", 20, 700, 18, 12),
		run("ue", 38, 700, 12, 12),
		run("next", 80, 700, 20, 12),
	}}

	if got := lineText(ln); got != "Value next" {
		t.Errorf("lineText = %q, want %q", got, "Value next")
	}
}

func TestGroupIntoBlocks(t *testing.T) {
	lines := []line{
		{baseline: 700, height: 12},
		{baseline: 685, height: 12},
		// 55pt gap: well past the block threshold for 12pt lines
		{baseline: 630, height: 12},
		{baseline: 615, height: 12},
	}

	blocks := groupIntoBlocks(lines)
	if len(blocks) != 2 {
		t.Fatalf("grouped %d blocks, want 2", len(blocks))
	}
	if len(blocks[0]) != 2 || len(blocks[1]) != 2 {
		t.Errorf("block sizes = %d, %d, want 2, 2", len(blocks[0]), len(blocks[1]))
	}
}

func TestIsMachineReadable(t *testing.T) {
	tests := []struct {
		name  string
		pages []PageStats
		want  bool
	}{
		{
			name:  "all text pages",
			pages: []PageStats{{TextArea: 500}, {TextArea: 300}},
			want:  true,
		},
		{
			name:  "one scanned page",
			pages: []PageStats{{TextArea: 500}, {ImageArea: 800}},
			want:  false,
		},
		{
			name:  "mixed page abstains",
			pages: []PageStats{{TextArea: 500, ImageArea: 100}},
			want:  true,
		},
		{
			name:  "empty document",
			pages: nil,
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMachineReadable(tt.pages); got != tt.want {
				t.Errorf("IsMachineReadable = %v, want %v", got, tt.want)
			}
		})
	}
}
