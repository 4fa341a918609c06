package lifecycle

import (
	"fmt"
)

// State is the position of the operator workflow.
type State int

const (
	CalibrationReminder State = iota
	CalibrationInterface
	FireStart
	FireAcquiring
	FireReviewPressure
	FireReviewRawLoad
	FireReviewCalibratedLoad
	FireSave
)

var stateNames = [...]string{
	CalibrationReminder:      "CALIBRATION_REMINDER",
	CalibrationInterface:     "CALIBRATION_INTERFACE",
	FireStart:                "FIRE_START",
	FireAcquiring:            "FIRE_ACQUIRING",
	FireReviewPressure:       "FIRE_REVIEW_PRESSURE",
	FireReviewRawLoad:        "FIRE_REVIEW_RAW_LOAD",
	FireReviewCalibratedLoad: "FIRE_REVIEW_CALIBRATED_LOAD",
	FireSave:                 "FIRE_SAVE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown lifecycle state %q", string(b))
}

// Reviewing reports whether s is one of the three review screens.
func (s State) Reviewing() bool {
	return s >= FireReviewPressure && s <= FireReviewCalibratedLoad
}

// Command is an operator request to the controller.
type Command int

const (
	Acknowledge Command = iota
	AddPoint
	RemovePoint
	FinishCalibration
	BeginFire
	TerminateFire
	AdvanceReview
	RetreatReview
	ProceedToSave
	Save
)

var commandNames = [...]string{
	Acknowledge:       "acknowledge",
	AddPoint:          "add_point",
	RemovePoint:       "remove_point",
	FinishCalibration: "finish_calibration",
	BeginFire:         "begin_fire",
	TerminateFire:     "terminate_fire",
	AdvanceReview:     "advance_review",
	RetreatReview:     "retreat_review",
	ProceedToSave:     "proceed_to_save",
	Save:              "save",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return commandNames[c]
}

type edge struct {
	from State
	cmd  Command
}

// transitions is the complete state machine. A command with no entry for
// the current state is rejected without effect.
var transitions = map[edge]State{
	{CalibrationReminder, Acknowledge}: CalibrationInterface,

	{CalibrationInterface, AddPoint}:          CalibrationInterface,
	{CalibrationInterface, RemovePoint}:       CalibrationInterface,
	{CalibrationInterface, FinishCalibration}: FireStart,

	{FireStart, BeginFire}:         FireAcquiring,
	{FireAcquiring, TerminateFire}: FireReviewPressure,

	// Review navigation is clamped at both ends.
	{FireReviewPressure, AdvanceReview}:       FireReviewRawLoad,
	{FireReviewRawLoad, AdvanceReview}:        FireReviewCalibratedLoad,
	{FireReviewRawLoad, RetreatReview}:        FireReviewPressure,
	{FireReviewCalibratedLoad, RetreatReview}: FireReviewRawLoad,

	{FireReviewCalibratedLoad, ProceedToSave}: FireSave,
	{FireSave, RetreatReview}:                 FireReviewCalibratedLoad,
	{FireSave, Save}:                          CalibrationReminder,
}

// failures names where a transition lands when its side effect fails.
// Edges not listed here keep the current state.
var failures = map[edge]State{
	{FireAcquiring, TerminateFire}: FireStart,
}

// Next returns the state cmd leads to from s, and whether cmd is valid
// in s at all.
func Next(s State, cmd Command) (State, bool) {
	to, ok := transitions[edge{s, cmd}]
	return to, ok
}

// Allowed lists the commands valid in s, in declaration order.
func Allowed(s State) []Command {
	var cmds []Command
	for c := Acknowledge; c <= Save; c++ {
		if _, ok := transitions[edge{s, c}]; ok {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
