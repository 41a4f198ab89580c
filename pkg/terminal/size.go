package terminal

import (
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
	"golang.org/x/sys/unix"
)

// Size holds terminal dimensions in cells and, when the terminal reports
// them, pixels.
type Size struct {
	Cols   int
	Rows   int
	PixelW int
	PixelH int
	CellW  int
	CellH  int
}

// GetSize returns the size of the first of stdout or stderr that is a
// terminal, then falls back to COLUMNS/LINES, then to 80x24.
func GetSize() Size {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		if s, ok := sizeOf(f.Fd()); ok {
			return s
		}
	}
	return sizeFromEnv()
}

// sizeOf reads the cell size with x/term and the pixel size with
// TIOCGWINSZ. Pixel fields stay zero when the terminal does not report them.
func sizeOf(fd uintptr) (Size, bool) {
	if !term.IsTerminal(fd) {
		return Size{}, false
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil || cols <= 0 || rows <= 0 {
		return Size{}, false
	}
	s := Size{Cols: cols, Rows: rows}
	if ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ); err == nil {
		s.PixelW, s.PixelH = int(ws.Xpixel), int(ws.Ypixel)
		if s.PixelW > 0 {
			s.CellW = s.PixelW / cols
		}
		if s.PixelH > 0 {
			s.CellH = s.PixelH / rows
		}
	}
	return s, true
}

func sizeFromEnv() Size {
	return Size{Cols: envInt("COLUMNS", 80), Rows: envInt("LINES", 24)}
}

// envInt returns the positive integer in the named variable, or fallback.
func envInt(name string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(name))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
