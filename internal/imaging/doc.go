// Package imaging provides the image model used by the palette reducer.
//
// This package wraps decoding, mode classification, color-space conversion and
// palette rendering behind a small API. Pixel-level work is delegated to
// github.com/disintegration/imaging and github.com/anthonynsimon/bild; this
// package decides which conversion applies and reports what it observed.
//
// # Modes
//
// A decoded image is classified into one of the modes below. The names match
// the ones printed in the reducer's diagnostics:
//   - RGB: true-color without alpha
//   - RGBA: true-color with alpha
//   - L: luminance (grayscale)
//   - LA: luminance with alpha
//   - P: indexed/palette
//
// Go's PNG decoder maps both grayscale+alpha and RGBA files onto *image.NRGBA,
// so for PNG sources the color type from the IHDR chunk is used to tell LA from
// RGBA. See ProbePNG.
//
// # Transparency
//
// An image carries transparency when its mode has an alpha channel (RGBA, LA)
// or when it is paletted and at least one palette entry is not fully opaque
// (the tRNS chunk for PNG sources).
//
// # Error Handling
//
// Functions return wrapped errors for:
//   - File I/O errors during loading
//   - Undecodable or unsupported image data
//   - Encoding errors during swatch output
package imaging
