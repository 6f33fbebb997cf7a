package audit

import (
	"context"
	"log/slog"
)

// Stage is a step of the scan state machine:
//
//	Init → Validated → Invoked → Parsed → Classified → {Summarized | Clean} → Done
//
// Any error moves straight to Done.
type Stage int

const (
	StageInit Stage = iota
	StageValidated
	StageInvoked
	StageParsed
	StageClassified
	StageSummarized
	StageClean
	StageDone
)

var stageNames = [...]string{
	StageInit:       "init",
	StageValidated:  "validated",
	StageInvoked:    "invoked",
	StageParsed:     "parsed",
	StageClassified: "classified",
	StageSummarized: "summarized",
	StageClean:      "clean",
	StageDone:       "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

type state struct {
	// stage is the last stage reached, step the work in progress after it.
	stage  Stage
	step   string
	onStep func(Stage)
}

func (st *state) begin(step string) { st.step = step }

func (st *state) advance(ctx context.Context, next Stage) {
	slog.DebugContext(ctx, "Scan stage", "from", st.stage, "to", next)
	st.stage = next
	st.step = ""
	if st.onStep != nil {
		st.onStep(next)
	}
}
