// Package modulate applies a periodic brightness modulation to raster images.
//
// A modulation multiplies every color sample by a normalized sine or cosine
// wave that varies along one image axis:
//
//	value(k) = 0.5 * (1 + f(2π·k / period))
//
// where f is sin or cos and k is the row index (vertical orientation) or the
// column index (horizontal orientation). The wave maps the function's [-1,1]
// range onto [0,1], so a value of 0 darkens a line completely and a value of
// 1 leaves it untouched.
//
// # Cost
//
// The wave is evaluated once per row or column into a 1-D mask (see Mask) and
// then broadcast over the orthogonal axis and all channels. A W×H image costs
// W·H multiplies and only H or W trigonometric evaluations.
//
// # Errors
//
// Parameters are validated before any pixel is read. Every validation failure
// is a *ParamError that matches ErrInvalidParameter with errors.Is.
//
// # Thread Safety
//
// Modulate and Mask are pure functions. The input image is never mutated and
// calls on different goroutines need no coordination.
package modulate
