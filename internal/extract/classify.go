/**
 * Readability classification: decides whether a PDF carries a usable text
 * layer or must be rasterized for OCR.
 */

package extract

// PageStats summarizes one page's content areas. Only the zero/non-zero
// distinction matters for classification, so the units are irrelevant.
type PageStats struct {
	TextArea  float64
	ImageArea float64
}

// IsMachineReadable reports whether a document can be scraped natively.
// A page votes readable when it holds only text, unreadable when it holds
// only images; mixed pages abstain. The document is readable when no page
// voted unreadable (a document with no votes at all counts as readable).
func IsMachineReadable(pages []PageStats) bool {
	for _, p := range pages {
		if p.TextArea == 0 && p.ImageArea > 0 {
			return false
		}
	}
	return true
}
