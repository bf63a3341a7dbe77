package actions

import "strconv"

// Axis names used as keys in exported action tables.
const (
	AxisLateral      = "Lateral"
	AxisLongitudinal = "Longitudinal"
)

// ActionTable maps label names to export codes and back, per axis.
type ActionTable struct {
	Forward map[string]map[string]int    `json:"action_table"`
	Reverse map[string]map[string]string `json:"reverse_action_table"`
}

// Table builds the forward and reverse action tables for both axes.
// Reverse keys are the decimal export codes.
func Table() ActionTable {
	t := ActionTable{
		Forward: map[string]map[string]int{
			AxisLateral:      {},
			AxisLongitudinal: {},
		},
		Reverse: map[string]map[string]string{
			AxisLateral:      {},
			AxisLongitudinal: {},
		},
	}
	for _, l := range lateralOrder {
		t.Forward[AxisLateral][l.String()] = l.Code()
		t.Reverse[AxisLateral][strconv.Itoa(l.Code())] = l.String()
	}
	for _, l := range longitudinalOrder {
		t.Forward[AxisLongitudinal][l.String()] = l.Code()
		t.Reverse[AxisLongitudinal][strconv.Itoa(l.Code())] = l.String()
	}
	return t
}
