package server

import (
	"math"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	decorationDir  = "svg_elements"
	maxDecorations = 18
)

// Decoration is one background ornament of the HTML pages.
type Decoration struct {
	URL     string
	Top     int // percent
	Left    int // percent
	Size    int // px
	Rotate  int // degrees
	Opacity float64
}

// loadDecorations places the SVG files found in staticDir/svg_elements at
// random. A missing or unreadable directory yields no decorations.
func loadDecorations(staticDir, urlPrefix string) []Decoration {
	entries, err := os.ReadDir(filepath.Join(staticDir, decorationDir))
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".svg") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	if len(names) > maxDecorations {
		names = names[:maxDecorations]
	}

	return placeDecorations(names, path.Join(urlPrefix, decorationDir), rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func placeDecorations(names []string, urlPrefix string, rng *rand.Rand) []Decoration {
	out := make([]Decoration, 0, len(names))
	for _, name := range names {
		out = append(out, Decoration{
			URL:     path.Join(urlPrefix, name),
			Top:     rng.IntN(86),
			Left:    rng.IntN(86),
			Size:    64 + rng.IntN(97),
			Rotate:  rng.IntN(361),
			Opacity: math.Round((0.15+0.2*rng.Float64())*100) / 100,
		})
	}
	return out
}
