// Package server implements the web front end of the periodic modulation
// service.
//
// The server accepts an uploaded image plus modulation parameters, applies
// the modulation, stores the original, the processed image and both color
// histograms as ephemeral artifacts, and answers with either an HTML page or
// JSON.
//
// # Routes
//
//   - GET  /                 Upload form
//   - POST /                 Process a multipart form, render result.html
//   - POST /api/v1/modulate  Process a multipart form, answer JSON
//   - GET  /static/*         Artifacts and decoration assets
//   - GET  /healthz          Health check (artifact directory writable)
//   - GET  /metrics          Prometheus metrics, when enabled
//   - /debug/pprof/*         Profiling, only in debug mode
//
// # Form Fields
//
//   - file:        the image (JPEG, PNG, GIF, BMP, TIFF or WebP)
//   - period:      wave length in pixels, required, > 0
//   - func:        "sin" or "cos" (also "sine"/"cosine"); defaults to "sin"
//     when the field is absent
//   - orientation: "vertical" or "horizontal"; defaults to "vertical" when
//     the field is absent
//
// Parameters are validated before the upload is read. A present but invalid
// value is always rejected, never replaced by a default.
//
// # Error Handling
//
// Errors are classified once, in classify:
//   - 400: invalid parameter, missing file, undecodable image
//   - 413: upload larger than the configured limit
//   - 503: request canceled while waiting for a processing slot
//   - 500: artifacts could not be written
//
// JSON errors have the shape {"error": {"code": ..., "message": ...}}.
//
// # Concurrency
//
// Handlers run concurrently. Each request owns its rasters; the only shared
// state is a weighted semaphore bounding how many images are in flight at
// once. A request holds its slot from decode through the last histogram.
package server
