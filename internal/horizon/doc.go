// Package horizon resolves look-ahead (and look-behind) offsets against an
// agent's sample timeline.
//
// A Sampler runs in exactly one mode per labeling run. Time mode resolves
// t0 + Δ to the nearest sample within a tolerance and is the default.
// Frame mode adds an integer offset to the frame index and assumes a fixed
// sample rate. An unresolved horizon is a normal result, never an error.
//
// Dependency rule: horizon depends only on config. It knows nothing about
// agent states or labels.
package horizon
