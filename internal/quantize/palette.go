package quantize

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	mediancut "github.com/ericpauley/go-quantize/quantize"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// maxKMeansSamples bounds the k-means dataset; larger sets of distinct
// colors are subsampled with a fixed stride.
const maxKMeansSamples = 12000

// medianCutPalette appends up to cap(p)-len(p) colors chosen by median cut.
func medianCutPalette(p color.Palette, samples *image.NRGBA) color.Palette {
	q := mediancut.MedianCutQuantizer{}
	return q.Quantize(p, samples)
}

// kmeansPalette appends up to cap(p)-len(p) k-means cluster centers computed
// over the distinct colors of samples. When there are no more distinct colors
// than free entries, the distinct colors are used as they are.
func kmeansPalette(p color.Palette, samples *image.NRGBA) (color.Palette, error) {
	k := cap(p) - len(p)

	seen := make(map[color.NRGBA]struct{})
	distinct := make([]color.NRGBA, 0)
	for i := 0; i+3 < len(samples.Pix); i += 4 {
		c := color.NRGBA{samples.Pix[i], samples.Pix[i+1], samples.Pix[i+2], samples.Pix[i+3]}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		distinct = append(distinct, c)
	}

	if len(distinct) <= k {
		slices.SortFunc(distinct, compareNRGBA)
		for _, c := range distinct {
			p = append(p, c)
		}
		return p, nil
	}

	step := 1
	if len(distinct) > maxKMeansSamples {
		step = len(distinct)/maxKMeansSamples + 1
	}

	dataset := make(clusters.Observations, 0, min(len(distinct), maxKMeansSamples))
	for i := 0; i < len(distinct); i += step {
		c := distinct[i]
		dataset = append(dataset, clusters.Coordinates{
			float64(c.R) / 255.0,
			float64(c.G) / 255.0,
			float64(c.B) / 255.0,
			float64(c.A) / 255.0,
		})
	}
	k = min(k, len(dataset))

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans partition: %w", err)
	}

	// Most populated clusters first so truncation drops the rarest colors.
	slices.SortFunc(cc, func(a, b clusters.Cluster) int {
		return cmp.Compare(len(b.Observations), len(a.Observations))
	})

	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 4 {
			continue
		}
		a := to8(c.Center[3])
		if a == 0 {
			// Only clear pixels may map to a zero-alpha entry.
			a = 1
		}
		p = append(p, color.NRGBA{R: to8(c.Center[0]), G: to8(c.Center[1]), B: to8(c.Center[2]), A: a})
		if len(p) == cap(p) {
			break
		}
	}
	return p, nil
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func compareNRGBA(a, b color.NRGBA) int {
	if c := cmp.Compare(a.R, b.R); c != 0 {
		return c
	}
	if c := cmp.Compare(a.G, b.G); c != 0 {
		return c
	}
	if c := cmp.Compare(a.B, b.B); c != 0 {
		return c
	}
	return cmp.Compare(a.A, b.A)
}
