// Package geometry owns agent states and reference-frame changes.
//
// Responsibilities: the immutable AgentState snapshot, moving and static
// reference frames, and the change-of-reference transform used by every
// other labeling layer. Key types: AgentState, ReferenceFrame.
//
// Axis convention: X forward, Y left, Z up. Positive yaw is a
// counter-clockwise (left) rotation about +Z. Attitudes are unit
// quaternions in (w, x, y, z) order, stored as gonum quat.Number with
// Real = w.
//
// Dependency rule: geometry depends on nothing else in this module.
package geometry
