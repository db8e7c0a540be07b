// Package detection provides connected-component and polygon geometry
// primitives for binary plate images.
//
// Plate segmentation works on binary rasters where foreground (text) pixels
// are white (> 127) and background pixels are black. This package turns those
// rasters into geometry the segmenter can reason about:
//
//   - Contours: 8-connected foreground components found by flood fill, and
//     enclosed background components (holes) such as the inside of a plate frame
//   - Outlines: ordered boundary pixels traced with Moore-neighbour tracing
//   - Polygons: convex hull, Douglas-Peucker simplification, convexity tests,
//     area and first-order moments, minimum-area rotated rectangles
//   - Line segments: the top and bottom lines of a text row, evaluated as
//     infinite lines (YAt, XAt, Angle, Intersection)
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// Angles are reported in degrees in image coordinates, so a line that falls
// toward the right has a positive angle.
//
// # Performance Considerations
//
// Component labelling visits every pixel once and keeps a visited grid the
// size of the image. Plate crops are small (a few hundred pixels wide), so the
// functions allocate freely rather than reuse buffers.
package detection
