// Package reducer turns one image file into a palette-reduced PNG.
//
// Images with transparency are quantized with a reserved fully transparent
// entry and written back as true-color-plus-alpha, so every clear pixel stays
// clear. Opaque images are quantized and written as indexed PNG. Either way
// the output has at most the requested number of distinct colors.
//
// Progress lines go to the io.Writer given to New. Structured events go to
// the global zerolog logger.
package reducer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	img "github.com/ironsheep/palette-reducer/internal/imaging"
	"github.com/ironsheep/palette-reducer/internal/quantize"
)

// Options configures a Reducer.
type Options struct {
	// MaxColors caps the output palette. Zero means quantize.DefaultColors.
	MaxColors int

	// Method selects the palette algorithm. Empty means median cut.
	Method quantize.Method

	// Verify re-decodes the written file to report its mode and size.
	Verify bool

	// Quality computes the CIEDE2000 error between input and output.
	Quality bool

	// SwatchDir, when set, receives a "<stem>.palette.png" tile image of
	// the output palette.
	SwatchDir string
}

// DefaultOptions returns the options used by the package-level Reduce.
func DefaultOptions() Options {
	return Options{
		MaxColors: quantize.DefaultColors,
		Method:    quantize.MethodMedianCut,
		Verify:    true,
	}
}

// Result describes a completed reduction.
type Result struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`

	// Before and After describe the source and the written image. After is
	// taken from the re-decoded file when verification is on.
	Before img.ImageInfo `json:"before"`
	After  img.ImageInfo `json:"after"`

	// Transparent reports whether the alpha-preserving path was taken.
	Transparent bool `json:"transparent"`

	Palette    []img.PaletteEntry `json:"palette"`
	Quality    *quantize.Quality  `json:"quality,omitempty"`
	SwatchPath string             `json:"swatch_path,omitempty"`
}

// Reducer reduces image files with a fixed set of options.
type Reducer struct {
	opts Options
	out  io.Writer
}

// New creates a Reducer that writes its progress lines to out.
// A nil out discards them.
func New(opts Options, out io.Writer) *Reducer {
	if out == nil {
		out = io.Discard
	}
	return &Reducer{opts: opts, out: out}
}

// Options returns the options the reducer was created with.
func (r *Reducer) Options() Options { return r.opts }

// Reduce reduces the file at inputPath and writes a PNG to outputPath.
//
// Images with a non-opaque pixel, or a palette declaring one, keep an alpha
// channel: fully transparent pixels map to a reserved clear entry and the
// result is written as RGBA. Everything else is written as an indexed PNG.
// Progress lines go to the writer given to New.
//
// The output is written to a temporary file in the destination directory and
// renamed into place, so a failed call leaves any existing outputPath intact.
//
// Parameters:
//   - inputPath: Image to reduce. Any format the imaging package decodes.
//   - outputPath: Destination PNG. Empty means overwrite inputPath.
//
// Returns:
//   - *Result: Modes before and after, palette and optional quality report.
//   - error: A *Error tagged with KindNotFound, KindDecode, KindEncode or
//     KindInvalidArgument. Match with errors.Is against ErrNotFound etc.
func (r *Reducer) Reduce(inputPath, outputPath string) (*Result, error) {
	if outputPath == "" {
		outputPath = inputPath
	}

	maxColors := r.opts.MaxColors
	if maxColors == 0 {
		maxColors = quantize.DefaultColors
	}
	if maxColors < 1 || maxColors > quantize.MaxPaletteSize {
		return nil, newError(KindInvalidArgument, "", fmt.Errorf("max colors %d not in [1, %d]", maxColors, quantize.MaxPaletteSize))
	}
	method, err := quantize.ParseMethod(string(r.opts.Method))
	if err != nil {
		return nil, newError(KindInvalidArgument, "", err)
	}

	if _, err := os.Stat(inputPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(KindNotFound, inputPath, nil)
		}
		return nil, newError(KindDecode, inputPath, err)
	}

	start := time.Now()

	bm, err := img.Load(inputPath)
	if err != nil {
		return nil, newError(KindDecode, inputPath, err)
	}
	fmt.Fprintf(r.out, "Original mode: %s, Size: (%d, %d)\n", bm.Mode, bm.Width(), bm.Height())

	result := &Result{
		InputPath:   inputPath,
		OutputPath:  outputPath,
		Before:      bm.Info(),
		Transparent: bm.HasTransparency(),
	}

	var (
		src image.Image
		out image.Image
		pal color.Palette
	)
	if result.Transparent {
		nrgba := img.ToNRGBA(bm.Image)
		q, err := quantize.Quantize(nrgba, quantize.Options{
			MaxColors:            maxColors,
			Method:               method,
			PreserveTransparency: true,
		})
		if err != nil {
			return nil, quantizeError(inputPath, err)
		}
		src, out, pal = nrgba, img.ToNRGBA(q.Image), q.Palette()
	} else {
		rgb := img.ToRGB(bm.Image)
		q, err := quantize.Quantize(rgb, quantize.Options{
			MaxColors: maxColors,
			Method:    method,
		})
		if err != nil {
			return nil, quantizeError(inputPath, err)
		}
		src, out, pal = rgb, q.Image, q.Palette()
	}
	result.Palette = img.PaletteEntries(pal)

	if err := writePNG(outputPath, out); err != nil {
		return nil, newError(KindEncode, outputPath, err)
	}

	if r.opts.Verify {
		written, err := img.Load(outputPath)
		if err != nil {
			return nil, newError(KindEncode, outputPath, fmt.Errorf("verification failed: %w", err))
		}
		result.After = written.Info()
	} else {
		result.After = (&img.Bitmap{Image: out, Mode: img.ModeOf(out), Format: "png"}).Info()
	}
	fmt.Fprintf(r.out, "Output mode: %s, Size: (%d, %d)\n", result.After.Mode, result.After.Width, result.After.Height)

	if r.opts.Quality {
		q, err := quantize.Measure(src, out)
		if err != nil {
			return nil, newError(KindEncode, outputPath, err)
		}
		result.Quality = &q
		fmt.Fprintf(r.out, "Palette: %d colors, %s\n", len(pal), q)
	}

	if r.opts.SwatchDir != "" {
		path, err := r.saveSwatch(outputPath, pal)
		if err != nil {
			log.Warn().Err(err).Str("file", outputPath).Msg("swatch not written")
		} else {
			result.SwatchPath = path
		}
	}

	fmt.Fprintf(r.out, "Saved to: %s\n", outputPath)

	log.Debug().
		Str("input", inputPath).
		Str("output", outputPath).
		Str("method", string(method)).
		Bool("transparent", result.Transparent).
		Int("palette", len(pal)).
		Dur("duration", time.Since(start)).
		Msg("image reduced")

	return result, nil
}

// Reduce reduces inputPath to at most maxColors colors with median cut and
// writes the PNG to outputPath, or over the input when outputPath is empty.
// Progress lines go to standard output.
//
// Parameters:
//   - inputPath: Image to reduce.
//   - outputPath: Destination PNG, empty to overwrite.
//   - maxColors: Palette cap in [1, 256]. Zero means 256.
//
// Returns the path written, or a *Error as described on (*Reducer).Reduce.
func Reduce(inputPath, outputPath string, maxColors int) (string, error) {
	opts := DefaultOptions()
	opts.MaxColors = maxColors
	res, err := New(opts, os.Stdout).Reduce(inputPath, outputPath)
	if err != nil {
		return "", err
	}
	return res.OutputPath, nil
}

func quantizeError(path string, err error) error {
	if errors.Is(err, quantize.ErrNoRoom) || errors.Is(err, quantize.ErrColorCount) || errors.Is(err, quantize.ErrUnknownMethod) {
		return newError(KindInvalidArgument, path, err)
	}
	return newError(KindDecode, path, err)
}

func (r *Reducer) saveSwatch(outputPath string, pal color.Palette) (string, error) {
	if err := os.MkdirAll(r.opts.SwatchDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create swatch directory: %w", err)
	}
	base := filepath.Base(outputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	path := filepath.Join(r.opts.SwatchDir, stem+".palette.png")
	if err := img.SaveSwatch(pal, path, img.DefaultSwatchTile, img.DefaultSwatchColumns); err != nil {
		return "", err
	}
	return path, nil
}

// writePNG encodes m into a temporary file next to path and renames it over
// path. An existing file keeps its permission bits.
func writePNG(path string, m image.Image) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = imaging.Encode(tmp, m, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	mode := fs.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace output: %w", err)
	}
	return nil
}
