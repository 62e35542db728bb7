package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/siroksgribogami/web-3/internal/histogram"
	"github.com/siroksgribogami/web-3/internal/imaging"
	"github.com/siroksgribogami/web-3/internal/modulate"
	"github.com/spf13/cobra"
)

type modulateOptions struct {
	in           string
	out          string
	period       float64
	fn           string
	orientation  string
	histogramDir string
	keepGray     bool
	maxPixels    int64
	quality      int
}

func newModulateCmd() *cobra.Command {
	var opts modulateOptions

	cmd := &cobra.Command{
		Use:   "modulate --in <image> --out <image> --period <pixels> [--func sin|cos] [--orientation vertical|horizontal]",
		Short: "Apply the periodic modulation to a local image file",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runModulate(opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.in, "in", "", "Input image")
	f.StringVar(&opts.out, "out", "", "Output image (.jpg, .jpeg or .png)")
	f.Float64Var(&opts.period, "period", 0, "Wave period in pixels (> 0)")
	f.StringVar(&opts.fn, "func", "sin", "Wave function: sin or cos")
	f.StringVar(&opts.orientation, "orientation", "vertical", "Wave direction: vertical or horizontal")
	f.StringVar(&opts.histogramDir, "histogram-dir", "", "Also write both histogram charts into this directory")
	f.BoolVar(&opts.keepGray, "keep-gray", false, "Keep grayscale sources single-channel")
	f.Int64Var(&opts.maxPixels, "max-pixels", imaging.DefaultMaxPixels, "Reject inputs larger than this many pixels")
	f.IntVar(&opts.quality, "quality", imaging.DefaultJPEGQuality, "JPEG quality (1-100)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func runModulate(opts modulateOptions) error {
	params, err := modulate.ParseParams(opts.period, opts.fn, opts.orientation)
	if err != nil {
		return err
	}
	format, err := imaging.FormatFromFilename(opts.out)
	if err != nil {
		return err
	}

	in, err := os.Open(opts.in)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	decodeOpts := []imaging.DecodeOption{imaging.MaxPixels(opts.maxPixels)}
	if opts.keepGray {
		decodeOpts = append(decodeOpts, imaging.KeepGray())
	}
	dec, err := imaging.Decode(in, decodeOpts...)
	if err != nil {
		return err
	}

	processed, err := modulate.Modulate(dec.Image, params)
	if err != nil {
		return err
	}

	out, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := imaging.Encode(out, processed, format, opts.quality); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Printf("Wrote %s (%dx%d, period=%g func=%s orientation=%s)",
		opts.out, dec.Info.Width, dec.Info.Height, params.Period, params.Func, params.Orientation)

	if opts.histogramDir == "" {
		return nil
	}
	if err := os.MkdirAll(opts.histogramDir, 0o755); err != nil {
		return fmt.Errorf("failed to create histogram directory: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(opts.out), filepath.Ext(opts.out))
	origPath := filepath.Join(opts.histogramDir, "hist_orig_"+stem+".png")
	if err := histogram.RenderFile(dec.Image, origPath, "Original image color histograms"); err != nil {
		return err
	}
	procPath := filepath.Join(opts.histogramDir, "hist_proc_"+stem+".png")
	if err := histogram.RenderFile(processed, procPath, "Processed image color histograms"); err != nil {
		return err
	}
	log.Printf("Wrote histograms %s and %s", origPath, procPath)
	return nil
}
