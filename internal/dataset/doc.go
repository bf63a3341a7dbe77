// Package dataset reads scene dumps exported from a driving dataset and
// converts them into labeling trajectories.
//
// A dump is a single JSON document grouping scenes by split. Each scene
// lists agents and each agent lists its samples in time order. Vectors
// follow the world convention (X forward, Y left, Z up); attitudes are
// [w, x, y, z] quaternions; projection matrices are 3x4 row-major and
// expect canonical camera coordinates.
package dataset
