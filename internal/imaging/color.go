package imaging

import (
	"image"
	"image/color"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
)

// RGBAColor represents a non-premultiplied RGBA color with 8-bit components.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// PaletteEntry describes one color of a reduced palette.
type PaletteEntry struct {
	Index int       `json:"index"`
	Hex   string    `json:"hex"` // "#RRGGBB" (alpha excluded)
	RGBA  RGBAColor `json:"rgba"`
}

// CountColors returns the number of distinct non-premultiplied RGBA values in img.
//
// Fully transparent pixels are counted by their stored color, so two clear
// pixels with different RGB count twice. For *image.Paletted the count is the
// number of distinct colors actually referenced, not the palette length.
func CountColors(img image.Image) int {
	b := img.Bounds()

	if p, ok := img.(*image.Paletted); ok {
		used := make(map[uint8]struct{}, len(p.Palette))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := p.Pix[p.PixOffset(b.Min.X, y):p.PixOffset(b.Max.X, y)]
			for _, idx := range row {
				used[idx] = struct{}{}
			}
		}
		colors := make(map[color.NRGBA]struct{}, len(used))
		for idx := range used {
			if int(idx) < len(p.Palette) {
				colors[color.NRGBAModel.Convert(p.Palette[idx]).(color.NRGBA)] = struct{}{}
			}
		}
		return len(colors)
	}

	if n, ok := img.(*image.NRGBA); ok {
		colors := make(map[[4]uint8]struct{})
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := n.Pix[n.PixOffset(b.Min.X, y):n.PixOffset(b.Max.X, y)]
			for i := 0; i+3 < len(row); i += 4 {
				colors[[4]uint8{row[i], row[i+1], row[i+2], row[i+3]}] = struct{}{}
			}
		}
		return len(colors)
	}

	colors := make(map[color.NRGBA]struct{})
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			colors[color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)] = struct{}{}
		}
	}
	return len(colors)
}

// HexColor formats c as "#RRGGBB", ignoring alpha.
func HexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	cf := colorful.Color{
		R: float64(n.R) / 255.0,
		G: float64(n.G) / 255.0,
		B: float64(n.B) / 255.0,
	}
	return strings.ToUpper(cf.Hex())
}

// PaletteEntries converts a palette into its reportable form.
func PaletteEntries(p color.Palette) []PaletteEntry {
	entries := make([]PaletteEntry, 0, len(p))
	for i, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		entries = append(entries, PaletteEntry{
			Index: i,
			Hex:   HexColor(n),
			RGBA:  RGBAColor{R: n.R, G: n.G, B: n.B, A: n.A},
		})
	}
	return entries
}

// DominantColor returns the dominant color of img as "#RRGGBB".
func DominantColor(img image.Image) string {
	return HexColor(dominantcolor.Find(img))
}
