/**
 * Line and block grouping over raw PDF text runs.
 *
 * The text layer arrives as positioned runs with no structure. Runs sharing a
 * baseline (within a tolerance) form a line; consecutive lines separated by a
 * gap larger than the block threshold start a new block. Pure functions over
 * pdf.Text so the grouping is testable without a PDF fixture.
 */

package extract

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// rowTolerance is the max baseline difference for runs on one line
	rowTolerance = 2.0
	// blockGapFactor: a vertical gap larger than this multiple of the line
	// height starts a new block
	blockGapFactor = 1.8
	// wordGap is the horizontal distance that separates two runs into words
	wordGap = 1.0
)

// line is a group of runs sharing a baseline
type line struct {
	baseline float64
	height   float64
	runs     []pdf.Text
}

// groupIntoLines buckets text runs by baseline, top of page first.
// Y grows upward in PDF coordinates, so higher Y means earlier on the page.
func groupIntoLines(texts []pdf.Text) []line {
	var lines []line
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		placed := false
		for i := range lines {
			if abs(lines[i].baseline-t.Y) <= rowTolerance {
				lines[i].runs = append(lines[i].runs, t)
				if t.FontSize > lines[i].height {
					lines[i].height = t.FontSize
				}
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, line{baseline: t.Y, height: t.FontSize, runs: []pdf.Text{t}})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].baseline > lines[j].baseline
	})
	for i := range lines {
		sort.SliceStable(lines[i].runs, func(a, b int) bool {
			return lines[i].runs[a].X < lines[i].runs[b].X
		})
	}
	return lines
}

// groupIntoBlocks splits ordered lines into blocks on large vertical gaps
func groupIntoBlocks(lines []line) [][]line {
	var blocks [][]line
	var current []line

	for i, ln := range lines {
		if i > 0 {
			prev := lines[i-1]
			gap := prev.baseline - ln.baseline
			threshold := blockGapFactor * max(prev.height, ln.height)
			if threshold <= 0 {
				threshold = blockGapFactor * 12
			}
			if gap > threshold {
				blocks = append(blocks, current)
				current = nil
			}
		}
		current = append(current, ln)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// lineText joins a line's runs left to right, inserting spaces at word gaps
func lineText(ln line) string {
	var b strings.Builder
	for i, run := range ln.runs {
		if i > 0 {
			prev := ln.runs[i-1]
			if run.X-(prev.X+prev.W) > wordGap {
				b.WriteString(" ")
			}
		}
		b.WriteString(run.S)
	}
	return b.String()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
