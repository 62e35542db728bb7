package modulate

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Mask returns the normalized wave for n consecutive pixel coordinates.
//
// mask[k] = 0.5 * (1 + f(2π·k / period)), with f chosen by fn. For a period
// accepted by Params.Validate every value lies in [0,1]. The caller is
// responsible for validating period and fn.
func Mask(n int, period float64, fn Func) []float64 {
	mask := make([]float64, n)
	omega := 2 * math.Pi / period
	for k := range mask {
		phase := omega * float64(k)
		var v float64
		if fn == Cosine {
			v = math.Cos(phase)
		} else {
			v = math.Sin(phase)
		}
		mask[k] = 0.5 * (1 + v)
	}
	return mask
}

// Modulate returns a copy of img whose color samples are scaled by the wave
// described by p.
//
// The result has the same width and height as img and its bounds start at
// (0,0). Grayscale inputs (*image.Gray) produce an *image.Gray; every other
// color model produces an *image.NRGBA whose alpha is copied from the source
// unchanged. Parameters are validated before any pixel is read.
//
// Samples are computed in float64, clamped to [0,255] and truncated toward
// zero.
//
// Parameters:
//   - img: The source raster. It is never modified.
//   - p: Period in pixels, wave function and orientation.
//
// Returns:
//   - image.Image: The modulated copy.
//   - error: A *ParamError matching ErrInvalidParameter if p is invalid.
func Modulate(img image.Image, p Params) (image.Image, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	n := height
	if p.Orientation == Horizontal {
		n = width
	}
	mask := Mask(n, p.Period, p.Func)

	if gray, ok := img.(*image.Gray); ok {
		return modulateGray(gray, mask, p.Orientation), nil
	}
	return modulateNRGBA(asNRGBA(img), mask, p.Orientation), nil
}

// asNRGBA returns img itself when it already stores non-premultiplied 8-bit
// samples, otherwise a converted copy. The result is only read.
func asNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(img)
}

func modulateNRGBA(src *image.NRGBA, mask []float64, o Orientation) *image.NRGBA {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := y * dst.Stride
		s := src.Pix[si : si+width*4 : si+width*4]
		d := dst.Pix[di : di+width*4 : di+width*4]

		if o == Vertical {
			m := mask[y]
			for i := 0; i < len(s); i += 4 {
				d[i+0] = scale(s[i+0], m)
				d[i+1] = scale(s[i+1], m)
				d[i+2] = scale(s[i+2], m)
				d[i+3] = s[i+3]
			}
			continue
		}

		for x := 0; x < width; x++ {
			i := x * 4
			m := mask[x]
			d[i+0] = scale(s[i+0], m)
			d[i+1] = scale(s[i+1], m)
			d[i+2] = scale(s[i+2], m)
			d[i+3] = s[i+3]
		}
	}
	return dst
}

func modulateGray(src *image.Gray, mask []float64, o Orientation) *image.Gray {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := y * dst.Stride
		for x := 0; x < width; x++ {
			var m float64
			if o == Vertical {
				m = mask[y]
			} else {
				m = mask[x]
			}
			dst.Pix[di+x] = scale(src.Pix[si+x], m)
		}
	}
	return dst
}

func scale(v uint8, m float64) uint8 {
	out := float64(v) * m
	if !(out > 0) { // also catches NaN
		return 0
	}
	if out > 255 {
		return 255
	}
	return uint8(out)
}
