// Package actions derives discrete meta-action labels from a pair of agent
// states.
//
// Two independent classifiers run on (current, future): Lateral looks at
// the relative yaw of the future attitude, Longitudinal at the change in
// speed. Both are stateless and take their thresholds explicitly.
//
// Each axis is a string-tagged category with an explicitly defined total
// order (Order). The integer codes (Code) exist for export tables only;
// callers must not compare categories arithmetically.
//
// CHANGE_LANE_LEFT, CHANGE_LANE_RIGHT and REVERSE are declared so exported
// tables are complete, but no classifier produces them: lane changes are
// not observable from yaw alone and reversing would need a heading versus
// velocity sign check.
package actions
