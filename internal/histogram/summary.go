package histogram

import (
	"image"

	bildhist "github.com/anthonynsimon/bild/histogram"
	"github.com/lucasb-eyer/go-colorful"
)

// Bins is the number of intensity bins per channel.
const Bins = 256

// Channel holds the sample counts of one color channel.
type Channel struct {
	// Name is the legend label: "R", "G", "B", or "L" for grayscale.
	Name string

	// Color is the hue the channel is drawn in.
	Color colorful.Color

	// Counts[v] is the number of samples with intensity v.
	Counts [Bins]int
}

// Max returns the largest bin count of the channel.
func (c *Channel) Max() int {
	m := 0
	for _, n := range c.Counts {
		if n > m {
			m = n
		}
	}
	return m
}

// Summary is the per-channel histogram of an image.
type Summary struct {
	Channels []Channel
	Pixels   int
}

// Max returns the largest bin count across all channels.
func (s *Summary) Max() int {
	m := 0
	for i := range s.Channels {
		if n := s.Channels[i].Max(); n > m {
			m = n
		}
	}
	return m
}

// Channel colors follow the usual plotting shorthands r, g, b.
var (
	colorRed   = colorful.Color{R: 1, G: 0, B: 0}
	colorGreen = colorful.Color{R: 0, G: 0.5, B: 0}
	colorBlue  = colorful.Color{R: 0, G: 0, B: 1}
	colorLuma  = colorful.Color{R: 0.35, G: 0.35, B: 0.35}
)

// Compute counts the samples of every color channel of img.
//
// Images with a single gray channel (*image.Gray, *image.Gray16) yield one
// channel named "L"; every other image yields R, G and B. Counts are taken on
// alpha-premultiplied values, which equal the stored values for the opaque
// images produced by the imaging package.
func Compute(img image.Image) *Summary {
	b := img.Bounds()
	hist := bildhist.NewRGBAHistogram(img)

	sum := &Summary{Pixels: b.Dx() * b.Dy()}
	if isGray(img) {
		sum.Channels = []Channel{newChannel("L", colorLuma, hist.R.Bins)}
		return sum
	}

	sum.Channels = []Channel{
		newChannel("R", colorRed, hist.R.Bins),
		newChannel("G", colorGreen, hist.G.Bins),
		newChannel("B", colorBlue, hist.B.Bins),
	}
	return sum
}

func newChannel(name string, c colorful.Color, bins []int) Channel {
	ch := Channel{Name: name, Color: c}
	copy(ch.Counts[:], bins)
	return ch
}

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}
