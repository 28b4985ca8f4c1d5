package quantize

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// maxQualitySamples bounds the number of pixel pairs Measure compares.
const maxQualitySamples = 65536

// ErrSizeMismatch is returned by Measure when the two images differ in size.
var ErrSizeMismatch = errors.New("image sizes differ")

// Quality summarizes the perceptual error between a source image and its
// quantized version, in CIEDE2000 units.
type Quality struct {
	// Samples is the number of compared pixels.
	Samples int `json:"samples"`

	MeanDeltaE   float64 `json:"mean_delta_e"`
	StdDevDeltaE float64 `json:"stddev_delta_e"`
	MaxDeltaE    float64 `json:"max_delta_e"`
}

// String formats the quality as a single console line.
func (q Quality) String() string {
	return fmt.Sprintf("mean ΔE00 %.2f, max ΔE00 %.2f", q.MeanDeltaE, q.MaxDeltaE)
}

// Measure compares src and dst pixel by pixel. Pixels that are fully
// transparent in both images are skipped; all others are compared on their
// color after dropping alpha. Large images are sampled with a fixed stride.
func Measure(src, dst image.Image) (Quality, error) {
	sb, db := src.Bounds(), dst.Bounds()
	if sb.Dx() != db.Dx() || sb.Dy() != db.Dy() {
		return Quality{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, sb.Dx(), sb.Dy(), db.Dx(), db.Dy())
	}

	total := sb.Dx() * sb.Dy()
	step := 1
	if total > maxQualitySamples {
		step = total/maxQualitySamples + 1
	}

	distances := make([]float64, 0, min(total, maxQualitySamples))
	for i := 0; i < total; i += step {
		x, y := i%sb.Dx(), i/sb.Dx()
		a := color.NRGBAModel.Convert(src.At(sb.Min.X+x, sb.Min.Y+y)).(color.NRGBA)
		b := color.NRGBAModel.Convert(dst.At(db.Min.X+x, db.Min.Y+y)).(color.NRGBA)
		if a.A == 0 && b.A == 0 {
			continue
		}
		distances = append(distances, deltaE(a, b))
	}

	if len(distances) == 0 {
		return Quality{}, nil
	}

	mean, std := stat.MeanStdDev(distances, nil)
	if len(distances) == 1 {
		std = 0
	}
	return Quality{
		Samples:      len(distances),
		MeanDeltaE:   mean,
		StdDevDeltaE: std,
		MaxDeltaE:    floats.Max(distances),
	}, nil
}

// deltaE returns the CIEDE2000 distance on the conventional 0-100 lightness
// scale. go-colorful works with L in [0,1].
func deltaE(a, b color.NRGBA) float64 {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	return ca.DistanceCIEDE2000(cb) * 100
}
