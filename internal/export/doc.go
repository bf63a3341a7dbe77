// Package export writes labeled frames as per-split JSON documents.
//
// Each split goes to <prefix>_<split>.json:
//
//	{
//	  "dataset":  {"scene_<i>": {"agent_<id>": {"frame_<n>": record}}},
//	  "metadata": {...}
//	}
//
// Records are buffered in memory and written on Close, so a split file
// only appears once its run completes.
//
// Dependency rule: export depends on labeling and the leaf packages; it
// never imports storage or report.
package export
