package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
)

// ToNRGBA returns a non-premultiplied true-color-plus-alpha copy of img.
// Fully transparent source pixels stay fully transparent.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// ToRGB returns an opaque true-color copy of img. Any alpha is discarded by
// compositing over black and forcing every pixel opaque.
func ToRGB(img image.Image) *image.RGBA {
	dst := clone.AsRGBA(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
