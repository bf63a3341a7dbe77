// Package report renders labeled trajectories for review: a PNG plot of
// each agent's path with its labels and look-ahead targets, and an HTML
// timeline of yaw change, speed and label codes per frame.
package report
