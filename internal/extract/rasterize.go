/**
 * Page rasterization via poppler for the OCR path
 */

package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// defaultRasterDPI balances OCR accuracy against image size
const defaultRasterDPI = 150

// RasterizePage renders a single PDF page to a PNG using pdftoppm.
// Returns the image bytes.
func RasterizePage(ctx context.Context, pdfPath string, page int, dpi int) ([]byte, error) {
	if dpi <= 0 {
		dpi = defaultRasterDPI
	}

	tmpDir, err := os.MkdirTemp("", "rasterize")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx,
		"pdftoppm",
		"-png",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		pdfPath,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed for page %d: %w: %s", page, err, string(out))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page %d: %w", page, err)
	}
	return data, nil
}
