package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrDecode is matched by every failure to interpret bytes as an image.
var ErrDecode = errors.New("image decode failed")

// DecodeError reports that an uploaded byte stream is not a supported image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid image file: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Info contains metadata about a decoded image.
type Info struct {
	// Width and Height are the pixel dimensions after EXIF orientation.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the sniffed source format: "jpeg", "png", "gif", "bmp",
	// "tiff" or "webp".
	Format string `json:"format"`

	// ColorDepth is the source bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha reports whether the source carried an alpha channel. The
	// decoded image is always opaque.
	HasAlpha bool `json:"has_alpha"`

	// Grayscale reports whether the source had a single gray channel.
	Grayscale bool `json:"grayscale"`

	// SizeBytes is the length of the encoded input.
	SizeBytes int64 `json:"size_bytes"`
}

// Decoded pairs a normalized raster with its source metadata.
type Decoded struct {
	Image image.Image
	Info  Info
}

// DefaultMaxPixels bounds the decoded raster when MaxPixels is not given.
// Larger sources are rejected before any pixel data is decoded.
const DefaultMaxPixels = 89_478_485

type decodeOptions struct {
	keepGray  bool
	maxPixels int64
}

// DecodeOption tunes DecodeBytes.
type DecodeOption func(*decodeOptions)

// KeepGray returns grayscale sources as *image.Gray instead of expanding them
// to RGB.
func KeepGray() DecodeOption {
	return func(o *decodeOptions) { o.keepGray = true }
}

// MaxPixels rejects sources whose width times height exceeds n. A
// non-positive n selects DefaultMaxPixels.
func MaxPixels(n int64) DecodeOption {
	return func(o *decodeOptions) { o.maxPixels = n }
}

// Decode reads r to the end and decodes it with DecodeBytes.
func Decode(r io.Reader, opts ...DecodeOption) (*Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return DecodeBytes(data, opts...)
}

// DecodeBytes decodes an encoded image into an opaque 8-bit raster.
//
// The format is sniffed from the content, never from a file name. EXIF
// orientation is applied. The result is an *image.NRGBA whose alpha is 255
// everywhere: a transparent source keeps its color values and loses its alpha,
// as a plain RGB conversion does.
//
// Parameters:
//   - data: The complete encoded image.
//   - opts: KeepGray returns grayscale sources that need no reorientation as
//     *image.Gray; MaxPixels overrides DefaultMaxPixels.
//
// Returns:
//   - *Decoded: The normalized raster and the source metadata.
//   - error: Non-nil if the content is not a supported image.
//
// # Size Limit
//
// Dimensions are read from the header first. A source larger than the pixel
// limit is rejected without decoding its pixel data, so a small compressed
// upload cannot expand into an unbounded raster.
//
// # Errors
//
// Any content that cannot be decoded, including oversized sources, yields a
// *DecodeError.
func DecodeBytes(data []byte, opts ...DecodeOption) (*Decoded, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxPixels <= 0 {
		o.maxPixels = DefaultMaxPixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > o.maxPixels {
		return nil, &DecodeError{Err: fmt.Errorf("image %dx%d exceeds the limit of %d pixels", cfg.Width, cfg.Height, o.maxPixels)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	info := Info{
		Format:     format,
		ColorDepth: "8-bit",
		SizeBytes:  int64(len(data)),
	}
	// Decoders report opaque truecolor as RGBA models and alpha-carrying
	// truecolor as NRGBA models.
	switch cfg.ColorModel {
	case color.NRGBAModel:
		info.HasAlpha = true
	case color.NRGBA64Model:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	case color.RGBA64Model:
		info.ColorDepth = "16-bit"
	case color.Gray16Model:
		info.Grayscale = true
		info.ColorDepth = "16-bit"
	case color.GrayModel:
		info.Grayscale = true
	}

	var out image.Image
	switch src := img.(type) {
	case *image.Gray:
		if o.keepGray {
			out = src
		}
	case *image.Gray16:
		if o.keepGray {
			gray := image.NewGray(src.Bounds())
			draw.Draw(gray, gray.Bounds(), src, src.Bounds().Min, draw.Src)
			out = gray
		}
	}
	if out == nil {
		out = opaque(imaging.Clone(img))
	}

	b := out.Bounds()
	info.Width, info.Height = b.Dx(), b.Dy()
	return &Decoded{Image: out, Info: info}, nil
}

// opaque forces every alpha sample of img to 255 in place.
func opaque(img *image.NRGBA) *image.NRGBA {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}
