/**
 * Bounding box geometry for the Annotation Worker
 *
 * All boxes are (x1, y1, x2, y2) tuples. Extraction normalizes coordinates to
 * [0,1] relative to page size so geometry works regardless of source resolution.
 */

package geometry

// BBox is an (x1, y1, x2, y2) bounding box
type BBox [4]float64

// Area returns the box area, 0 for inverted boxes
func (b BBox) Area() float64 {
	w := b[2] - b[0]
	h := b[3] - b[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Intersection returns the overlap area of two boxes, 0 when they don't overlap
func Intersection(a, b BBox) float64 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

// Union returns area(a) + area(b) - intersection, floored at 1 so callers can
// divide by it without a zero check
func Union(a, b BBox) float64 {
	u := a.Area() + b.Area() - Intersection(a, b)
	if u < 1 {
		return 1
	}
	return u
}

// IoU returns intersection over (floored) union
func IoU(a, b BBox) float64 {
	return Intersection(a, b) / Union(a, b)
}

// SmallerIoU returns intersection over the smaller of the two areas. Catches
// "b nearly contained in a" when the sizes differ so much that plain IoU stays
// low.
func SmallerIoU(a, b BBox) float64 {
	smaller := min(a.Area(), b.Area())
	if smaller <= 0 {
		return 0
	}
	return Intersection(a, b) / smaller
}

// ParentBBox returns the tightest box enclosing all boxes in the list.
// The list must be non-empty.
func ParentBBox(boxes []BBox) BBox {
	if len(boxes) == 0 {
		return BBox{}
	}
	parent := boxes[0]
	for _, b := range boxes[1:] {
		parent = parent.Expand(b)
	}
	return parent
}

// Expand returns the union hull of b and other
func (b BBox) Expand(other BBox) BBox {
	return BBox{
		min(b[0], other[0]),
		min(b[1], other[1]),
		max(b[2], other[2]),
		max(b[3], other[3]),
	}
}

// PageSize is (height, width) in pixels
type PageSize struct {
	Height float64
	Width  float64
}

// Normalize divides box coordinates by page width/height into the [0,1] range
func Normalize(b BBox, size PageSize) BBox {
	return BBox{
		b[0] / size.Width,
		b[1] / size.Height,
		b[2] / size.Width,
		b[3] / size.Height,
	}
}

// Denormalize multiplies normalized coordinates back to pixel space
func Denormalize(b BBox, size PageSize) BBox {
	return BBox{
		b[0] * size.Width,
		b[1] * size.Height,
		b[2] * size.Width,
		b[3] * size.Height,
	}
}
