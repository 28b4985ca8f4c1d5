package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// Swatch layout defaults.
const (
	DefaultSwatchTile    = 16
	DefaultSwatchColumns = 16
)

// ErrEmptyPalette is returned when a swatch is requested for a palette without colors.
var ErrEmptyPalette = errors.New("empty palette")

// RenderSwatch draws a palette as a grid of square tiles, one per entry, in
// palette order. Each tile sits on a gray checkerboard so translucent entries
// stay visible.
//
// Parameters:
//   - p: Palette to draw. Must not be empty.
//   - tileSize: Tile edge in pixels. Values <= 0 use DefaultSwatchTile.
//   - columns: Tiles per row. Values <= 0 use DefaultSwatchColumns.
//
// The result is len(p) tiles wide when the palette is shorter than one row.
func RenderSwatch(p color.Palette, tileSize, columns int) (image.Image, error) {
	if len(p) == 0 {
		return nil, ErrEmptyPalette
	}
	if tileSize <= 0 {
		tileSize = DefaultSwatchTile
	}
	if columns <= 0 {
		columns = DefaultSwatchColumns
	}
	if len(p) < columns {
		columns = len(p)
	}
	rows := (len(p) + columns - 1) / columns

	dc := gg.NewContext(columns*tileSize, rows*tileSize)
	half := float64(tileSize) / 2

	for i, c := range p {
		x := float64((i % columns) * tileSize)
		y := float64((i / columns) * tileSize)

		dc.SetRGB255(204, 204, 204)
		dc.DrawRectangle(x, y, float64(tileSize), float64(tileSize))
		dc.Fill()
		dc.SetRGB255(255, 255, 255)
		dc.DrawRectangle(x, y, half, half)
		dc.DrawRectangle(x+half, y+half, half, half)
		dc.Fill()

		dc.SetColor(c)
		dc.DrawRectangle(x, y, float64(tileSize), float64(tileSize))
		dc.Fill()
	}

	return dc.Image(), nil
}

// SaveSwatch renders the palette and writes it as PNG to path.
func SaveSwatch(p color.Palette, path string, tileSize, columns int) error {
	img, err := RenderSwatch(p, tileSize, columns)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("failed to write swatch: %w", err)
	}
	return nil
}
