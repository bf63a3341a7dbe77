// Package projection maps future agent positions into a camera's canonical
// frame and onto its image plane.
//
// Canonical camera axes are X right, Y down, Z forward. Body and world
// frames use X forward, Y left, Z up. The only place that converts between
// the two is BodyToCamera; call sites never permute axes themselves.
//
// A point at or behind the image plane (z <= 0) still has a valid 3D
// waypoint but no pixel.
package projection
