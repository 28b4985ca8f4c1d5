package quantize

import (
	"image"
	"image/color"
)

// remap assigns every pixel of src the index of its nearest palette entry.
//
// Fully transparent pixels go to clearIndex when it is set. Visible pixels
// never map to clearIndex or to any other zero-alpha entry. Distances follow
// color.Palette.Index, the same metric image/draw uses.
func remap(src *image.NRGBA, pal color.Palette, clearIndex int) *image.Paletted {
	b := src.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), pal)

	candidates := make(color.Palette, 0, len(pal))
	indices := make([]uint8, 0, len(pal))
	for i, c := range pal {
		if i == clearIndex {
			continue
		}
		if _, _, _, a := c.RGBA(); a == 0 && clearIndex >= 0 {
			continue
		}
		candidates = append(candidates, c)
		indices = append(indices, uint8(i))
	}

	cache := make(map[color.NRGBA]uint8)
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):src.PixOffset(b.Max.X, b.Min.Y+y)]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x := range out {
			c := color.NRGBA{row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]}
			if clearIndex >= 0 && c.A == 0 {
				out[x] = uint8(clearIndex)
				continue
			}
			idx, ok := cache[c]
			if !ok {
				idx = indices[candidates.Index(c)]
				cache[c] = idx
			}
			out[x] = idx
		}
	}

	return dst
}

// refit moves each referenced entry other than clearIndex to the mean of the
// source pixels mapped to it. The mean of non-zero alphas is non-zero, so
// visible pixels stay visible.
func refit(src *image.NRGBA, dst *image.Paletted, clearIndex int) {
	type sum struct{ r, g, b, a, n uint64 }
	sums := make([]sum, len(dst.Palette))

	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):src.PixOffset(b.Max.X, b.Min.Y+y)]
		for x, idx := range dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()] {
			if int(idx) == clearIndex {
				continue
			}
			s := &sums[idx]
			s.r += uint64(row[x*4])
			s.g += uint64(row[x*4+1])
			s.b += uint64(row[x*4+2])
			s.a += uint64(row[x*4+3])
			s.n++
		}
	}

	for i, s := range sums {
		if s.n == 0 {
			continue
		}
		half := s.n / 2
		dst.Palette[i] = color.NRGBA{
			R: uint8((s.r + half) / s.n),
			G: uint8((s.g + half) / s.n),
			B: uint8((s.b + half) / s.n),
			A: uint8((s.a + half) / s.n),
		}
	}
}
