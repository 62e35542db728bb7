// Package histogram summarizes the color distribution of an image and renders
// it as a chart.
//
// Compute counts every 8-bit sample of each color channel into 256 bins, one
// per intensity value. Render draws the per-channel distributions overlaid on
// a single 600×300 PNG chart: red, green and blue curves with partial
// transparency so overlaps stay visible, an x axis fixed to [0,255], a legend
// and an optional title. Grayscale images produce a single channel.
//
// Write failures are reported as *IOError, which matches ErrIO. RenderFile
// writes through a temporary file so a failed render never leaves a partial
// artifact at the destination.
package histogram
