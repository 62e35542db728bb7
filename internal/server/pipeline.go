package server

import (
	"context"
	"image"
	"log"
	"time"

	"github.com/siroksgribogami/web-3/internal/artifacts"
	"github.com/siroksgribogami/web-3/internal/histogram"
	"github.com/siroksgribogami/web-3/internal/imaging"
	"github.com/siroksgribogami/web-3/internal/metrics"
	"github.com/siroksgribogami/web-3/internal/modulate"
)

const (
	titleOriginal  = "Original image color histograms"
	titleProcessed = "Processed image color histograms"
)

// result describes the stored artifacts of one request.
type result struct {
	set  artifacts.Set
	info imaging.Info
}

// inlineResult carries the outputs of one request without storing them.
type inlineResult struct {
	info          imaging.Info
	processed     *imaging.EncodedImage
	histOriginal  *imaging.EncodedImage
	histProcessed *imaging.EncodedImage
}

// timed runs fn and records its duration under stage.
func timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}

// acquire waits for a processing slot. The slot covers every stage that
// holds full-resolution rasters: decode, modulate, encode and histograms.
func (s *Server) acquire(ctx context.Context) (release func(), err error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { s.sem.Release(1) }, nil
}

// transform decodes data and modulates it. The caller holds a slot.
func (s *Server) transform(ctx context.Context, data []byte, p modulate.Params) (*imaging.Decoded, image.Image, error) {
	var dec *imaging.Decoded
	if err := timed("decode", func() (err error) {
		dec, err = imaging.DecodeBytes(data, imaging.MaxPixels(s.cfg.MaxPixels))
		return err
	}); err != nil {
		return nil, nil, err
	}
	metrics.InputPixels.Observe(float64(dec.Info.Width * dec.Info.Height))

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var processed image.Image
	if err := timed("modulate", func() (err error) {
		processed, err = modulate.Modulate(dec.Image, p)
		return err
	}); err != nil {
		return nil, nil, err
	}
	metrics.Modulations.WithLabelValues(p.Func.String(), p.Orientation.String()).Inc()

	return dec, processed, ctx.Err()
}

// process runs the pipeline and stores the original, the processed image and
// both histograms under one request id. A failed request leaves no artifacts.
func (s *Server) process(ctx context.Context, data []byte, p modulate.Params) (*result, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	dec, processed, err := s.transform(ctx, data, p)
	if err != nil {
		return nil, err
	}

	set := artifacts.NewSet(imaging.JPEG)
	if err := timed("store", func() error {
		return s.store.WriteSet(set, dec.Image, processed, titleOriginal, titleProcessed)
	}); err != nil {
		return nil, err
	}

	if s.cfg.DebugLogging() {
		log.Printf("Processed %s %dx%d (period=%g func=%s orientation=%s) as %s",
			dec.Info.Format, dec.Info.Width, dec.Info.Height, p.Period, p.Func, p.Orientation, set.ID)
	}
	return &result{set: set, info: dec.Info}, nil
}

// processInline runs the pipeline and returns the processed image and both
// histograms base64-encoded instead of storing them.
func (s *Server) processInline(ctx context.Context, data []byte, p modulate.Params) (*inlineResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	dec, processed, err := s.transform(ctx, data, p)
	if err != nil {
		return nil, err
	}

	out, err := imaging.EncodeBase64(processed, imaging.JPEG, s.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	res := &inlineResult{info: dec.Info, processed: out}
	err = timed("histogram", func() (err error) {
		if res.histOriginal, err = renderInline(dec.Image, titleOriginal); err != nil {
			return err
		}
		res.histProcessed, err = renderInline(processed, titleProcessed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func renderInline(img image.Image, title string) (*imaging.EncodedImage, error) {
	chart, err := histogram.Draw(histogram.Compute(img), title)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeBase64(chart, imaging.PNG, 0)
}
