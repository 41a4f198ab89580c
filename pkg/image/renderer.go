package image

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/blacktop/go-termimg"

	"gitlab.com/tinyland/lab/random-panda/pkg/config"
	"gitlab.com/tinyland/lab/random-panda/pkg/terminal"
)

// ErrDisabled is returned by Render when the protocol is "none".
var ErrDisabled = errors.New("image rendering is disabled (protocol=none)")

// Renderer turns a decoded picture into a terminal escape string that covers
// a region of cells.
type Renderer struct {
	protocol terminal.GraphicsProtocol
	caps     terminal.Capabilities
	cache    *Cache
}

// NewRenderer creates a Renderer configured from terminal capabilities and
// user configuration. Protocol selection follows a cascade:
//
//  1. If cfg.Protocol is set (and not "auto"), use that override.
//  2. Otherwise, use caps.Protocol from terminal detection.
func NewRenderer(caps terminal.Capabilities, cfg config.ImageConfig) *Renderer {
	proto := caps.Protocol
	if cfg.Protocol != "" && !strings.EqualFold(cfg.Protocol, "auto") {
		proto = terminal.SelectProtocolWithOverride(caps.Term, cfg.Protocol)
	}
	return &Renderer{
		protocol: proto,
		caps:     caps,
		cache:    NewCache(cfg.MaxCacheSizeMB),
	}
}

// Protocol returns the active rendering protocol.
func (r *Renderer) Protocol() terminal.GraphicsProtocol {
	return r.protocol
}

// Cache returns the frame cache.
func (r *Renderer) Cache() *Cache {
	return r.cache
}

// Render crops img to cover cols x rows cells and renders it. source names
// the picture (its link) and keys the frame cache, so repeated frames for the
// same picture and size are not re-rendered.
func (r *Renderer) Render(source string, img image.Image, cols, rows int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("image is nil")
	}
	if cols <= 0 || rows <= 0 {
		return "", nil
	}
	if r.protocol == terminal.ProtocolNone {
		return "", ErrDisabled
	}

	key := CacheKey{Source: source, Protocol: r.protocol.String(), Width: cols, Height: rows}
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	halfblocks := r.protocol == terminal.ProtocolHalfblocks
	pw, ph := CoverPixels(cols, rows, r.caps.Size.CellW, r.caps.Size.CellH, halfblocks)
	covered := Cover(img, pw, ph)
	if covered == nil {
		return "", fmt.Errorf("image %s has no pixels", source)
	}

	var (
		rendered string
		err      error
	)
	switch r.protocol {
	case terminal.ProtocolKitty:
		rendered, err = renderTermimg(covered, termimg.Kitty, cols, rows)
	case terminal.ProtocolITerm2:
		rendered, err = renderTermimg(covered, termimg.ITerm2, cols, rows)
	case terminal.ProtocolSixel:
		rendered, err = renderTermimg(covered, termimg.Sixel, cols, rows)
	default:
		rendered = renderHalfblocks(covered, cols, rows)
	}
	if err != nil {
		return "", fmt.Errorf("render %s: %w", source, err)
	}

	r.cache.Put(key, rendered)
	return rendered, nil
}

// renderTermimg delegates to go-termimg for Kitty, iTerm2, and Sixel.
func renderTermimg(img image.Image, proto termimg.Protocol, cols, rows int) (string, error) {
	ti := termimg.New(img)
	if ti == nil {
		return "", fmt.Errorf("go-termimg: failed to create image wrapper")
	}
	ti.Protocol(proto).Size(cols, rows).Scale(termimg.ScaleFit)
	return ti.Render()
}

// renderHalfblocks renders img, which must be cols x 2*rows pixels, with the
// upper half block U+2580: foreground carries the top pixel, background the
// bottom one. Output is exactly rows lines of cols cells, each line ending in
// a reset so styling never bleeds into the next line.
func renderHalfblocks(img *image.NRGBA, cols, rows int) string {
	b := img.Bounds()

	var sb strings.Builder
	sb.Grow(cols * rows * 40)

	for row := 0; row < rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		ty := b.Min.Y + row*2
		for col := 0; col < cols; col++ {
			x := b.Min.X + col
			if x >= b.Max.X || ty >= b.Max.Y {
				sb.WriteByte(' ')
				continue
			}
			top := img.NRGBAAt(x, ty)
			bot := top
			bot.A = 0
			if ty+1 < b.Max.Y {
				bot = img.NRGBAAt(x, ty+1)
			}

			switch {
			case top.A == 0 && bot.A == 0:
				sb.WriteString("\x1b[0m ")
			case top.A == 0:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▄", bot.R, bot.G, bot.B)
			case bot.A == 0:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▀", top.R, top.G, top.B)
			default:
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
					top.R, top.G, top.B, bot.R, bot.G, bot.B)
			}
		}
		sb.WriteString("\x1b[0m")
	}
	return sb.String()
}
