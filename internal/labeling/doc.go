// Package labeling turns agent trajectories into labeled frames.
//
// For every sample of a trajectory the Builder produces three ego views
// (global, local, diff), a meta-action and a waypoint per configured
// horizon, and optionally a window of surrounding objects keyed by track
// ID. Builder holds no mutable state and BuildTrajectory is a pure function
// of its inputs, so Batch can fan work out across agents without locks.
//
// Frame-scoped failures (missing velocity or attitude, malformed
// quaternions) are captured as FrameError values and never stop a batch.
// Configuration errors are returned before any scene is processed.
//
// Dependency rule: labeling may depend on geometry, actions, horizon,
// projection, config, monitoring and timeutil. It never performs file or
// database I/O; writers implement Sink.
package labeling
