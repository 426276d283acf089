package ocr

import (
	"testing"

	"github.com/adverant/nexus/annotation-worker/internal/document"
	"github.com/adverant/nexus/annotation-worker/internal/geometry"
)

func TestLineNumberer(t *testing.T) {
	ln := newLineNumberer()

	first := ln.lineNumber(1, 1, 1)
	second := ln.lineNumber(1, 1, 2)
	third := ln.lineNumber(2, 1, 1)

	if first != 1 || second != 2 || third != 3 {
		t.Errorf("dense ids = %d, %d, %d, want 1, 2, 3", first, second, third)
	}

	// Revisiting a triple returns the id assigned on first sight
	if got := ln.lineNumber(1, 1, 2); got != second {
		t.Errorf("repeat lookup = %d, want %d", got, second)
	}

	// A new block keeps allocating fresh ids
	if got := ln.lineNumber(3, 1, 1); got != 4 {
		t.Errorf("next id = %d, want 4", got)
	}
}

func TestRemoveOverlappingWords(t *testing.T) {
	box := geometry.BBox{0.10, 0.10, 0.30, 0.15}
	nearlySame := geometry.BBox{0.11, 0.10, 0.30, 0.15}
	elsewhere := geometry.BBox{0.60, 0.60, 0.80, 0.65}

	tests := []struct {
		name  string
		words []document.Word
		want  []string
	}{
		{
			name: "longer text wins",
			words: []document.Word{
				{Text: "Inv", BBox: box},
				{Text: "Invoice", BBox: nearlySame},
				{Text: "Total", BBox: elsewhere},
			},
			want: []string{"Invoice", "Total"},
		},
		{
			name: "tie keeps first",
			words: []document.Word{
				{Text: "cat", BBox: box},
				{Text: "car", BBox: nearlySame},
			},
			want: []string{"cat"},
		},
		{
			name: "no overlap keeps all",
			words: []document.Word{
				{Text: "alpha", BBox: box},
				{Text: "beta", BBox: elsewhere},
			},
			want: []string{"alpha", "beta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveOverlappingWords(tt.words, DefaultDuplicateThreshold)
			if len(got) != len(tt.want) {
				t.Fatalf("kept %d words, want %d: %v", len(got), len(tt.want), got)
			}
			for i, w := range got {
				if w.Text != tt.want[i] {
					t.Errorf("word %d = %q, want %q", i, w.Text, tt.want[i])
				}
			}
		})
	}
}

func TestAssembleLines(t *testing.T) {
	words := []document.Word{
		{Text: "Quarterly", BBox: geometry.BBox{0.1, 0.1, 0.3, 0.15}, Confidence: 90, BlockNum: 1, LineNum: 1},
		{Text: "report", BBox: geometry.BBox{0.32, 0.1, 0.5, 0.15}, Confidence: 80, BlockNum: 1, LineNum: 1},
		{Text: "Revenue", BBox: geometry.BBox{0.1, 0.2, 0.3, 0.25}, Confidence: 70, BlockNum: 2, LineNum: 2},
	}

	spans := AssembleLines(words)
	if len(spans) != 2 {
		t.Fatalf("assembled %d spans, want 2", len(spans))
	}

	first := spans[0]
	if first.Text != "Quarterly report" {
		t.Errorf("line text = %q", first.Text)
	}
	if first.ID != 1 || first.PageNumber != 1 || first.BlockNumber != 1 {
		t.Errorf("span metadata = id %d page %d block %d", first.ID, first.PageNumber, first.BlockNumber)
	}
	if first.Confidence != 85 {
		t.Errorf("confidence = %v, want mean 85", first.Confidence)
	}
	wantBBox := geometry.BBox{0.1, 0.1, 0.5, 0.15}
	if first.BBox != wantBBox {
		t.Errorf("line bbox = %v, want %v", first.BBox, wantBBox)
	}

	if spans[1].BlockNumber != 2 || spans[1].ID != 2 {
		t.Errorf("second span metadata = id %d block %d", spans[1].ID, spans[1].BlockNumber)
	}
}
