package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Bitmap is a decoded image together with the metadata the reducer needs to
// pick a conversion path.
type Bitmap struct {
	// Image is the decoded pixel data. The concrete type depends on the source
	// format and color type (e.g., *image.NRGBA, *image.Paletted, *image.Gray).
	Image image.Image

	// Mode is the classified pixel representation.
	Mode Mode

	// Format is the name the decoder registered under: "png", "jpeg", "gif",
	// "bmp", "tiff" or "webp".
	Format string

	// Header is the probed PNG header, nil for other formats.
	Header *PNGHeader
}

// Load reads and decodes the image file at path.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. Errors from opening
// the file wrap the underlying *fs.PathError, so errors.Is(err, fs.ErrNotExist)
// works on the result.
func Load(path string) (*Bitmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return Decode(data)
}

// Decode decodes an in-memory encoded image.
func Decode(data []byte) (*Bitmap, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bm := &Bitmap{
		Image:  img,
		Mode:   ModeOf(img),
		Format: format,
	}

	if format == "png" {
		// The decoder already accepted the stream, so a probe failure only
		// means the extra header details are unavailable.
		if hdr, err := ProbePNG(bytes.NewReader(data)); err == nil {
			bm.Header = hdr
			if hdr.Mode() == ModeLA && bm.Mode == ModeRGBA {
				bm.Mode = ModeLA
			}
		}
	}

	return bm, nil
}

// Width returns the image width in pixels.
func (b *Bitmap) Width() int { return b.Image.Bounds().Dx() }

// Height returns the image height in pixels.
func (b *Bitmap) Height() int { return b.Image.Bounds().Dy() }

// HasTransparency reports whether the bitmap must take the alpha-preserving path.
func (b *Bitmap) HasTransparency() bool {
	return HasTransparency(b.Image, b.Mode)
}

// ImageInfo contains metadata about a decoded image.
//
// This struct is what the reducer prints before and after a reduction and what
// the inspect command and the image_inspect tool return.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder format name, e.g. "png".
	Format string `json:"format"`

	// Mode is the classified pixel representation.
	Mode Mode `json:"mode"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	// For PNG sources paletted and grayscale files may report lower depths.
	ColorDepth string `json:"color_depth"`

	// HasTransparency indicates whether the image takes the alpha-preserving path.
	HasTransparency bool `json:"has_transparency"`

	// Colors is the number of distinct non-premultiplied RGBA values.
	Colors int `json:"colors"`

	// FileSizeBytes is the size of the file on disk, 0 when not loaded from disk.
	FileSizeBytes int64 `json:"file_size_bytes,omitempty"`

	// DominantColor is the "#RRGGBB" dominant color, only filled by Inspect.
	DominantColor string `json:"dominant_color,omitempty"`
}

// Info summarizes the bitmap. Counting colors visits every pixel.
func (b *Bitmap) Info() ImageInfo {
	colorDepth := "8-bit"
	switch b.Image.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		colorDepth = "16-bit"
	}
	if b.Header != nil && b.Header.BitDepth < 8 {
		colorDepth = fmt.Sprintf("%d-bit", b.Header.BitDepth)
	}

	return ImageInfo{
		Width:           b.Width(),
		Height:          b.Height(),
		Format:          b.Format,
		Mode:            b.Mode,
		ColorDepth:      colorDepth,
		HasTransparency: b.HasTransparency(),
		Colors:          CountColors(b.Image),
	}
}

// Inspect loads the image at path and returns its full metadata.
//
// On top of Info it fills in the file size and the dominant color, which
// needs a k-means pass over the pixels. Use Info on a loaded Bitmap when
// those are not needed.
//
// Parameters:
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: Non-nil if the image cannot be decoded or the file cannot be
//     stat'd.
func Inspect(path string) (*ImageInfo, error) {
	bm, err := Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := bm.Info()
	info.FileSizeBytes = stat.Size()
	info.DominantColor = DominantColor(bm.Image)

	return &info, nil
}
