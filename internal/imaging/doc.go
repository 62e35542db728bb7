// Package imaging decodes uploaded images into normalized rasters and encodes
// results back to JPEG or PNG.
//
// Decoding sniffs the format from content (JPEG, PNG, GIF, BMP, TIFF and WebP
// are registered), applies EXIF orientation and reports the source metadata
// in an Info. The raster handed to the rest of the program is an opaque 8-bit
// *image.NRGBA, or an *image.Gray when KeepGray is requested for a grayscale
// source.
//
// # Errors
//
// Content that cannot be decoded yields a *DecodeError matching ErrDecode.
// Its message starts with "invalid image file: " and is safe to show to the
// uploader.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package imaging
