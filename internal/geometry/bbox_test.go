package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIntersection(t *testing.T) {
	tests := []struct {
		name string
		a, b BBox
		want float64
	}{
		{
			name: "partial overlap",
			a:    BBox{0, 0, 10, 10},
			b:    BBox{5, 5, 15, 15},
			want: 25,
		},
		{
			name: "no overlap",
			a:    BBox{0, 0, 10, 10},
			b:    BBox{20, 20, 30, 30},
			want: 0,
		},
		{
			name: "touching edges",
			a:    BBox{0, 0, 10, 10},
			b:    BBox{10, 0, 20, 10},
			want: 0,
		},
		{
			name: "contained",
			a:    BBox{0, 0, 100, 100},
			b:    BBox{10, 10, 20, 20},
			want: 100,
		},
		{
			name: "inverted box",
			a:    BBox{10, 10, 0, 0},
			b:    BBox{0, 0, 10, 10},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intersection(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Intersection(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIoUSymmetry(t *testing.T) {
	pairs := [][2]BBox{
		{{0, 0, 10, 10}, {5, 5, 15, 15}},
		{{0, 0, 100, 50}, {20, 10, 80, 40}},
		{{0, 0, 10, 10}, {50, 50, 60, 60}},
		{{3, 7, 30, 70}, {3, 7, 30, 70}},
	}

	for _, p := range pairs {
		if got, want := IoU(p[0], p[1]), IoU(p[1], p[0]); !almostEqual(got, want) {
			t.Errorf("IoU not symmetric for %v, %v: %v vs %v", p[0], p[1], got, want)
		}
	}
}

func TestIoUIdentity(t *testing.T) {
	boxes := []BBox{
		{0, 0, 10, 10},
		{5, 5, 100, 200},
		{1, 1, 3, 3},
	}

	for _, b := range boxes {
		if got := IoU(b, b); !almostEqual(got, 1.0) {
			t.Errorf("IoU(%v, %v) = %v, want 1.0", b, b, got)
		}
	}
}

func TestSmallerIoUAtLeastIoU(t *testing.T) {
	pairs := [][2]BBox{
		{{0, 0, 10, 10}, {5, 5, 15, 15}},
		{{0, 0, 100, 100}, {10, 10, 20, 20}},
		{{0, 0, 10, 10}, {50, 50, 60, 60}},
		{{0, 0, 50, 50}, {0, 0, 50, 50}},
		{{0.1, 0.1, 0.5, 0.5}, {0.2, 0.2, 0.4, 0.6}},
	}

	for _, p := range pairs {
		iou := IoU(p[0], p[1])
		smaller := SmallerIoU(p[0], p[1])
		if smaller < iou-1e-9 {
			t.Errorf("SmallerIoU(%v, %v) = %v < IoU = %v", p[0], p[1], smaller, iou)
		}
	}
}

func TestSmallerIoUContainment(t *testing.T) {
	// A tiny box fully inside a large one: plain IoU is small but SmallerIoU is 1
	a := BBox{0, 0, 100, 100}
	b := BBox{10, 10, 20, 20}

	if got := SmallerIoU(a, b); !almostEqual(got, 1.0) {
		t.Errorf("SmallerIoU(contained) = %v, want 1.0", got)
	}
	if got := IoU(a, b); got > 0.5 {
		t.Errorf("IoU(contained) = %v, expected small value", got)
	}
}

func TestParentBBox(t *testing.T) {
	boxes := []BBox{
		{10, 20, 30, 40},
		{5, 25, 35, 38},
		{12, 18, 28, 45},
	}

	want := BBox{5, 18, 35, 45}
	if got := ParentBBox(boxes); got != want {
		t.Errorf("ParentBBox = %v, want %v", got, want)
	}

	single := []BBox{{1, 2, 3, 4}}
	if got := ParentBBox(single); got != single[0] {
		t.Errorf("ParentBBox(single) = %v, want %v", got, single[0])
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	size := PageSize{Height: 792, Width: 612}
	boxes := []BBox{
		{0.1, 0.2, 0.3, 0.4},
		{0, 0, 1, 1},
		{0.25, 0.5, 0.75, 0.99},
	}

	for _, b := range boxes {
		got := Normalize(Denormalize(b, size), size)
		for i := range got {
			if math.Abs(got[i]-b[i]) > 1e-9 {
				t.Errorf("round trip %v -> %v", b, got)
				break
			}
		}
	}
}

func TestNormalizeUsesHeightWidthOrder(t *testing.T) {
	size := PageSize{Height: 200, Width: 100}
	b := BBox{50, 100, 100, 200}

	want := BBox{0.5, 0.5, 1.0, 1.0}
	got := Normalize(b, size)
	for i := range got {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("Normalize = %v, want %v", got, want)
			break
		}
	}
}
