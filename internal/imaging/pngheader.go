package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PNG color types from the IHDR chunk.
const (
	pngColorGray      = 0
	pngColorRGB       = 2
	pngColorPalette   = 3
	pngColorGrayAlpha = 4
	pngColorRGBA      = 6
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// ErrNotPNG is returned by ProbePNG when the stream lacks the PNG signature.
var ErrNotPNG = errors.New("not a PNG stream")

// PNGHeader holds the parts of a PNG file's header that the decoded image no
// longer exposes.
type PNGHeader struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	BitDepth  int  `json:"bit_depth"`
	ColorType int  `json:"color_type"`
	HasTRNS   bool `json:"has_trns"`
}

// ProbePNG reads the signature, the IHDR chunk and every chunk up to the first
// IDAT, recording whether a tRNS chunk was present.
//
// Only chunk headers are interpreted; chunk payloads other than IHDR are
// skipped without CRC validation. The image decoder validates the full stream.
func ProbePNG(r io.Reader) (*PNGHeader, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, fmt.Errorf("failed to read signature: %w", err)
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, ErrNotPNG
	}

	var hdr PNGHeader
	seenIHDR := false
	chunk := make([]byte, 8)

	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			if seenIHDR && errors.Is(err, io.EOF) {
				return &hdr, nil
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(chunk[:4])
		typ := string(chunk[4:8])

		switch typ {
		case "IHDR":
			if length != 13 {
				return nil, fmt.Errorf("invalid IHDR length %d", length)
			}
			data := make([]byte, 13+4)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("failed to read IHDR: %w", err)
			}
			hdr.Width = int(binary.BigEndian.Uint32(data[0:4]))
			hdr.Height = int(binary.BigEndian.Uint32(data[4:8]))
			hdr.BitDepth = int(data[8])
			hdr.ColorType = int(data[9])
			seenIHDR = true
			continue
		case "IDAT", "IEND":
			if !seenIHDR {
				return nil, fmt.Errorf("chunk %s before IHDR", typ)
			}
			return &hdr, nil
		case "tRNS":
			hdr.HasTRNS = true
		}

		if !seenIHDR {
			return nil, fmt.Errorf("chunk %s before IHDR", typ)
		}
		// Payload plus CRC.
		if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
			return nil, fmt.Errorf("failed to skip chunk %s: %w", typ, err)
		}
	}
}

// Mode returns the mode described by the header's color type.
func (h *PNGHeader) Mode() Mode {
	switch h.ColorType {
	case pngColorGray:
		if h.HasTRNS {
			return ModeLA
		}
		return ModeL
	case pngColorGrayAlpha:
		return ModeLA
	case pngColorPalette:
		return ModeP
	case pngColorRGBA:
		return ModeRGBA
	case pngColorRGB:
		if h.HasTRNS {
			return ModeRGBA
		}
		return ModeRGB
	}
	return ModeRGB
}
