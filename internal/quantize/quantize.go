// Package quantize reduces an image to a bounded palette.
//
// Palette construction is delegated to third-party clustering: median cut from
// github.com/ericpauley/go-quantize (the default) or k-means from
// github.com/muesli/kmeans. This package decides which pixels take part,
// reserves a fully transparent entry when the image needs one, maps pixels to
// palette indices and refits each entry to the pixels it received.
package quantize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/ironsheep/palette-reducer/internal/imaging"
)

// Method selects the palette construction algorithm.
type Method string

const (
	MethodMedianCut Method = "mediancut"
	MethodKMeans    Method = "kmeans"
)

const (
	// MaxPaletteSize is the largest palette a single-byte index can address.
	MaxPaletteSize = 256

	// DefaultColors is used when Options.MaxColors is zero.
	DefaultColors = 256
)

var (
	// ErrColorCount is returned for a MaxColors outside [1, MaxPaletteSize].
	ErrColorCount = errors.New("color count out of range")

	// ErrNoRoom is returned when the transparent entry uses up the whole
	// palette but the image still has visible pixels.
	ErrNoRoom = errors.New("palette has no room for visible colors")

	// ErrUnknownMethod is returned by ParseMethod and Quantize for an
	// unsupported method name.
	ErrUnknownMethod = errors.New("unknown quantization method")
)

// ParseMethod converts a configuration string into a Method. The empty string
// selects median cut.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodMedianCut:
		return MethodMedianCut, nil
	case MethodKMeans:
		return MethodKMeans, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Options describes one quantization request.
type Options struct {
	// MaxColors caps the palette size. Zero means DefaultColors.
	MaxColors int

	// Method is the clustering algorithm. Empty means MethodMedianCut.
	Method Method

	// PreserveTransparency keeps fully transparent pixels fully transparent by
	// excluding them from clustering and mapping them to one reserved entry.
	PreserveTransparency bool
}

// Result is a quantized image.
type Result struct {
	// Image holds the palette indices. Its bounds start at (0,0).
	Image *image.Paletted

	// ClearIndex is the reserved fully transparent entry, or -1.
	ClearIndex int
}

// Palette returns the palette of the quantized image.
func (r *Result) Palette() color.Palette {
	return r.Image.Palette
}

// Quantize reduces img to at most opts.MaxColors colors.
//
// With PreserveTransparency set, a pixel of the result is fully transparent
// exactly when the corresponding source pixel is. Partially transparent
// pixels keep a non-zero alpha, though its exact value may change.
//
// # Errors
//
//   - ErrColorCount if MaxColors is outside [1, MaxPaletteSize]
//   - ErrUnknownMethod for an unsupported Method
//   - ErrNoRoom if MaxColors is 1 and the image mixes clear and visible pixels
func Quantize(img image.Image, opts Options) (*Result, error) {
	maxColors := opts.MaxColors
	if maxColors == 0 {
		maxColors = DefaultColors
	}
	if maxColors < 1 || maxColors > MaxPaletteSize {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrColorCount, maxColors, MaxPaletteSize)
	}

	method, err := ParseMethod(string(opts.Method))
	if err != nil {
		return nil, err
	}

	src := imaging.ToNRGBA(img)
	samples, hasClear := collectSamples(src, opts.PreserveTransparency)

	pal := make(color.Palette, 0, maxColors)
	clearIndex := -1
	if hasClear {
		pal = append(pal, color.NRGBA{})
		clearIndex = 0
	}

	if len(samples.Pix) > 0 {
		if len(pal) == cap(pal) {
			return nil, fmt.Errorf("%w: %d color(s) requested", ErrNoRoom, maxColors)
		}
		switch method {
		case MethodKMeans:
			pal, err = kmeansPalette(pal, samples)
		default:
			pal = medianCutPalette(pal, samples)
		}
		if err != nil {
			return nil, err
		}
		if len(pal) > maxColors {
			pal = pal[:maxColors]
		}
		pal = ensureVisible(pal, clearIndex, samples)
	}

	if len(pal) == 0 {
		// Zero-area image.
		pal = append(pal, color.NRGBA{A: 0xff})
	}

	dst := remap(src, normalize(pal), clearIndex)
	refit(src, dst, clearIndex)

	return &Result{Image: dst, ClearIndex: clearIndex}, nil
}

// collectSamples gathers the pixels that take part in clustering into a
// single-row strip. With preserveClear set, fully transparent pixels are left
// out and reported through the second return value.
func collectSamples(src *image.NRGBA, preserveClear bool) (*image.NRGBA, bool) {
	b := src.Bounds()
	pix := make([]uint8, 0, b.Dx()*b.Dy()*4)
	hasClear := false

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			if preserveClear && row[i+3] == 0 {
				hasClear = true
				continue
			}
			pix = append(pix, row[i], row[i+1], row[i+2], row[i+3])
		}
	}

	n := len(pix) / 4
	return &image.NRGBA{
		Pix:    pix,
		Stride: n * 4,
		Rect:   image.Rect(0, 0, n, 1),
	}, hasClear
}

// normalize converts every entry to color.NRGBA so the encoder and the
// refit step see straight alpha.
func normalize(p color.Palette) color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = color.NRGBAModel.Convert(c)
	}
	return out
}

// ensureVisible guarantees an entry that visible pixels can map to. The
// clustering libraries always produce one for a non-empty sample; this keeps
// the clear-pixel invariant independent of that.
func ensureVisible(p color.Palette, clearIndex int, samples *image.NRGBA) color.Palette {
	for i, c := range p {
		if _, _, _, a := c.RGBA(); i != clearIndex && a != 0 {
			return p
		}
	}
	fallback := color.NRGBA{samples.Pix[0], samples.Pix[1], samples.Pix[2], samples.Pix[3]}
	if fallback.A == 0 {
		fallback.A = 0xff
	}
	if len(p) < cap(p) {
		return append(p, fallback)
	}
	p[len(p)-1] = fallback
	return p
}
