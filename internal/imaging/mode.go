package imaging

import (
	"image"
	"image/color"
)

// Mode is the pixel representation of a decoded image.
type Mode string

const (
	ModeRGB  Mode = "RGB"
	ModeRGBA Mode = "RGBA"
	ModeL    Mode = "L"
	ModeLA   Mode = "LA"
	ModeP    Mode = "P"
)

// HasAlpha reports whether the mode itself carries an alpha channel.
func (m Mode) HasAlpha() bool {
	return m == ModeRGBA || m == ModeLA
}

// ModeOf classifies an in-memory image by its concrete Go type.
//
// *image.RGBA and *image.RGBA64 are reported as RGB when every pixel is opaque;
// the PNG decoder produces them for truecolor files without alpha. Types the
// function does not know fall back to RGB or RGBA depending on opacity.
func ModeOf(img image.Image) Mode {
	switch m := img.(type) {
	case *image.Paletted:
		return ModeP
	case *image.Gray, *image.Gray16:
		return ModeL
	case *image.NRGBA, *image.NRGBA64:
		return ModeRGBA
	case *image.YCbCr, *image.CMYK:
		return ModeRGB
	case *image.RGBA:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.RGBA64:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	}

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return ModeRGB
	}
	return ModeRGBA
}

// HasTransparency reports whether an image in the given mode must go through
// the alpha-preserving path.
//
// An alpha mode only counts when some pixel is not fully opaque. PNG files
// stored as RGBA with every alpha at 255 decode to *image.NRGBA, and the
// encoder would write them back as truecolor RGB.
func HasTransparency(img image.Image, mode Mode) bool {
	if mode.HasAlpha() {
		if o, ok := img.(interface{ Opaque() bool }); ok {
			return !o.Opaque()
		}
		return true
	}
	if mode == ModeP {
		if p, ok := img.(*image.Paletted); ok {
			return paletteHasTransparency(p.Palette)
		}
	}
	return false
}

func paletteHasTransparency(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}

// HasClearPixels reports whether any pixel of img is fully transparent.
func HasClearPixels(img image.Image) bool {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := n.Pix[n.PixOffset(b.Min.X, y):n.PixOffset(b.Max.X, y)]
			for i := 3; i < len(row); i += 4 {
				if row[i] == 0 {
					return true
				}
			}
		}
		return false
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a == 0 {
				return true
			}
		}
	}
	return false
}
