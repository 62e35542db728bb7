package histogram

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrIO is matched by every failure to write a rendered histogram.
var ErrIO = errors.New("histogram write failed")

// IOError reports that a histogram could not be written to its destination.
type IOError struct {
	Dest string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write histogram to %s: %v", e.Dest, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// Chart geometry in pixels.
const (
	ChartWidth  = 600
	ChartHeight = 300

	marginLeft   = 56
	marginRight  = 16
	marginTop    = 32
	marginBottom = 34

	fillAlpha = 0.5
	fontSize  = 11
)

var (
	fontOnce   sync.Once
	parsedFont *truetype.Font
	fontErr    error
)

func regularFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		parsedFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return parsedFont, fontErr
}

// Render computes the histogram of img and writes it to w as a PNG chart.
//
// Parameters:
//   - img: The image to summarize. Grayscale images chart a single channel.
//   - w: Destination of the PNG bytes.
//   - title: Drawn above the plot; an empty title omits the line.
//
// Returns:
//   - error: A *IOError matching ErrIO if w fails, or an error if the chart
//     font cannot be loaded.
//
// # Chart Layout
//
// The chart is ChartWidth x ChartHeight pixels. Channels are drawn as
// half-transparent step curves over a shared x axis spanning intensities
// 0-255, with a legend in the top-right corner.
func Render(img image.Image, w io.Writer, title string) error {
	dc, err := draw(Compute(img), title)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return &IOError{Dest: destName(w), Err: err}
	}
	return nil
}

// RenderFile renders the histogram of img to the PNG file at path.
//
// Parameters:
//   - img: The image to summarize.
//   - path: Destination file. Its directory must exist.
//   - title: Chart title, as for Render.
//
// Returns:
//   - error: A *IOError matching ErrIO if the file cannot be written.
//
// The chart is written to a temporary file in the same directory and renamed
// into place, so path either receives a complete chart or is left untouched.
func RenderFile(img image.Image, path, title string) error {
	dc, err := draw(Compute(img), title)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".histogram-*.tmp")
	if err != nil {
		return &IOError{Dest: path, Err: err}
	}
	cleanupTemp := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupTemp {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if err := dc.EncodePNG(tmpFile); err != nil {
		return &IOError{Dest: path, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &IOError{Dest: path, Err: err}
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return &IOError{Dest: path, Err: err}
	}

	cleanupTemp = false
	return nil
}

// Draw renders sum into an image without encoding it.
func Draw(sum *Summary, title string) (image.Image, error) {
	dc, err := draw(sum, title)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

func draw(sum *Summary, title string) (*gg.Context, error) {
	f, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load chart font: %w", err)
	}

	dc := gg.NewContext(ChartWidth, ChartHeight)
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: fontSize}))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	left, top := float64(marginLeft), float64(marginTop)
	right, bottom := float64(ChartWidth-marginRight), float64(ChartHeight-marginBottom)
	plotW, plotH := right-left, bottom-top

	peak := sum.Max()
	if peak == 0 {
		peak = 1
	}
	// Leave 5% headroom above the tallest bin.
	yScale := plotH * 0.95 / float64(peak)

	for i := range sum.Channels {
		ch := &sum.Channels[i]
		dc.NewSubPath()
		dc.MoveTo(left, bottom)
		for v, n := range ch.Counts {
			y := bottom - float64(n)*yScale
			dc.LineTo(binX(left, plotW, v), y)
			dc.LineTo(binX(left, plotW, v+1), y)
		}
		dc.LineTo(right, bottom)
		dc.ClosePath()

		c := ch.Color
		dc.SetRGBA(c.R, c.G, c.B, fillAlpha)
		dc.FillPreserve()

		edge := c.BlendLab(colorful.Color{}, 0.3).Clamped()
		dc.SetRGBA(edge.R, edge.G, edge.B, 0.8)
		dc.SetLineWidth(0.8)
		dc.Stroke()
	}

	// Frame and ticks.
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(left, top, plotW, plotH)
	dc.Stroke()

	for v := 0; v <= 250; v += 50 {
		x := binX(left, plotW, v)
		dc.DrawLine(x, bottom, x, bottom+4)
		dc.Stroke()
		dc.DrawStringAnchored(strconv.Itoa(v), x, bottom+6, 0.5, 1)
	}
	for _, n := range []int{0, peak / 2, peak} {
		y := bottom - float64(n)*yScale
		dc.DrawLine(left-4, y, left, y)
		dc.Stroke()
		dc.DrawStringAnchored(strconv.Itoa(n), left-6, y, 1, 0.5)
	}

	if title != "" {
		dc.DrawStringAnchored(title, ChartWidth/2, top/2, 0.5, 0.5)
	}

	drawLegend(dc, sum.Channels, right-8, top+8)
	return dc, nil
}

// binX returns the left edge of bin v in a plot of width plotW starting at
// left. Ticks and bars share it so tick v sits on bin v.
func binX(left, plotW float64, v int) float64 {
	return left + float64(v)*plotW/Bins
}

// drawLegend stacks one swatch per channel below the top-right corner (x, y).
func drawLegend(dc *gg.Context, channels []Channel, x, y float64) {
	const (
		swatchW = 18
		swatchH = 9
		rowH    = 16
		labelW  = 14
	)
	boxW := float64(swatchW + labelW + 14)
	boxH := float64(len(channels)*rowH + 6)
	x0 := x - boxW

	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawRectangle(x0, y, boxW, boxH)
	dc.FillPreserve()
	dc.SetRGBA(0.6, 0.6, 0.6, 1)
	dc.SetLineWidth(0.8)
	dc.Stroke()

	for i, ch := range channels {
		rowY := y + 4 + float64(i*rowH)
		dc.SetRGBA(ch.Color.R, ch.Color.G, ch.Color.B, fillAlpha)
		dc.DrawRectangle(x0+5, rowY+3, swatchW, swatchH)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(ch.Name, x0+swatchW+10, rowY+rowH/2, 0, 0.5)
	}
}

func destName(w io.Writer) string {
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "writer"
}
