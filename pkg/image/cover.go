package image

import (
	"image"

	"github.com/disintegration/imaging"
)

// Default cell geometry when the terminal does not report pixel sizes.
const (
	defaultCellW = 8
	defaultCellH = 16
)

// CoverPixels returns the pixel size a picture must have to cover a region of
// cols x rows terminal cells. With halfblocks each cell shows one pixel across
// and two pixels down; graphics protocols use the real cell geometry.
func CoverPixels(cols, rows, cellW, cellH int, halfblocks bool) (int, int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if halfblocks {
		return cols, rows * 2
	}
	if cellW <= 0 {
		cellW = defaultCellW
	}
	if cellH <= 0 {
		cellH = defaultCellH
	}
	return cols * cellW, rows * cellH
}

// Cover scales img so it fills w x h completely, preserving aspect ratio, and
// crops the overflow equally from both sides (center anchor). The picture is
// never tiled. Small pictures are scaled up.
func Cover(img image.Image, w, h int) *image.NRGBA {
	if img == nil || w <= 0 || h <= 0 {
		return nil
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil
	}
	return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
}
