// Package imaging provides the raster operations the plate pipeline runs on
// 8-bit grayscale and binary images.
//
// This package covers image loading (with a shared grayscale cache), grayscale
// conversion, cropping and resizing, binary rotation, and the small set of
// drawing primitives segmentation needs: filled rectangles, thick lines,
// convex polygons, and pixelwise AND/OR masks. Heavy lifting (resampling,
// rotation, grayscale weighting) is delegated to github.com/disintegration/imaging.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive (image.Rectangle)
//
// Images produced here are always anchored at (0,0).
//
// # Binary Images
//
// A binary image is an *image.Gray holding only 0 (background) and 255
// (foreground). Any value above 127 is treated as foreground when reading.
// Plate binarizations put text in the foreground.
//
// # Thread Safety
//
// The GrayCache type is safe for concurrent use; the rasters it returns are
// shared and read-only. Individual image operations
// are stateless and can be called concurrently on different images. Drawing
// functions mutate their destination and must not share it across goroutines.
package imaging
