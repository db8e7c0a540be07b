// Package segment finds the character regions of each text line in a set of
// binarized plate images.
//
// Segmentation runs in three stages per line:
//
//   - Contour filtering removes components too small, thin or wide to be
//     glyphs and, when an enclosed plate frame is visible, clips the images
//     to it and tightens the line's top and bottom segments.
//   - Histogram boxing projects each image onto the x axis inside the line
//     polygon, turns foreground runs into candidate boxes, and picks the
//     canonical layout from a histogram of how many images cover each column.
//   - Refinement trims plate-border artifacts at both ends, merges halves of
//     split characters, drops boxes empty in most images, and cleans the
//     pixels inside the surviving boxes.
//
// A Segmenter mutates the Workspace it is given: images are cleaned in place,
// lines may be corrected, and Workspace.Regions receives the x-sorted,
// non-overlapping regions per line.
package segment
