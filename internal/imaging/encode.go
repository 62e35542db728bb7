package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is used when a non-positive quality is requested.
const DefaultJPEGQuality = 90

// Format identifies an output encoding.
type Format struct {
	name     string
	ext      string
	mimeType string
	enc      imaging.Format
}

var (
	JPEG = Format{name: "jpeg", ext: ".jpg", mimeType: "image/jpeg", enc: imaging.JPEG}
	PNG  = Format{name: "png", ext: ".png", mimeType: "image/png", enc: imaging.PNG}
)

func (f Format) String() string   { return f.name }
func (f Format) Ext() string      { return f.ext }
func (f Format) MimeType() string { return f.mimeType }

// FormatFromFilename picks the output format from a file extension. Only JPEG
// and PNG are produced.
func FormatFromFilename(name string) (Format, error) {
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		return Format{}, err
	}
	switch f {
	case imaging.JPEG:
		return JPEG, nil
	case imaging.PNG:
		return PNG, nil
	default:
		return Format{}, fmt.Errorf("unsupported output format %s", f)
	}
}

// Encode writes img to w in the given format.
//
// Parameters:
//   - w: Destination of the encoded bytes.
//   - img: The raster to encode.
//   - f: JPEG or PNG. The zero Format is rejected.
//   - quality: JPEG quality in 1-100; non-positive values select
//     DefaultJPEGQuality. Ignored for PNG.
//
// Returns:
//   - error: Non-nil if f is the zero Format or the encoder or w fails.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	if f.name == "" {
		return fmt.Errorf("no output format")
	}
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	if err := imaging.Encode(w, img, f.enc, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return nil
}

// EncodedImage carries an encoded image inline, for JSON responses.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeBase64 encodes img and wraps the bytes as base64.
func EncodeBase64(img image.Image, f Format, quality int) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, quality); err != nil {
		return nil, err
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    f.MimeType(),
	}, nil
}
