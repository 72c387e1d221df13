package trade

import (
	"bank/internal/model/enum"

	"github.com/yanun0323/errors"
)

var ErrInvalidTransition = errors.New("invalid trade stage transition")

// Stage tracks how far an order got. Stages are never persisted.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageValidated
	StagePriced
	StageLedgerChecked
	StageCommitted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageValidated:
		return "validated"
	case StagePriced:
		return "priced"
	case StageLedgerChecked:
		return "ledger-checked"
	case StageCommitted:
		return "committed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var transitions = map[Stage][]Stage{
	StageUnknown:       {StageValidated, StageFailed},
	StageValidated:     {StagePriced, StageFailed},
	StagePriced:        {StageLedgerChecked, StageFailed},
	StageLedgerChecked: {StageCommitted, StageFailed},
}

// Flow records the stages of one order.
type Flow struct {
	Side    enum.Side
	Symbol  string
	stage   Stage
	failed  Stage
	history []Stage
}

// NewFlow starts a flow in StageUnknown.
func NewFlow(side enum.Side, symbol string) *Flow {
	return &Flow{Side: side, Symbol: symbol, history: make([]Stage, 0, 4)}
}

// Stage returns the current stage.
func (f *Flow) Stage() Stage {
	return f.stage
}

// FailedAt returns the stage the flow was in when it failed.
func (f *Flow) FailedAt() Stage {
	return f.failed
}

// History returns every stage reached, in order.
func (f *Flow) History() []Stage {
	return append([]Stage(nil), f.history...)
}

// Advance moves the flow to next.
func (f *Flow) Advance(next Stage) error {
	if !f.allowed(next) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", f.stage, next)
	}
	if next == StageFailed {
		f.failed = f.stage
	}
	f.stage = next
	f.history = append(f.history, next)
	return nil
}

// Fail moves the flow to StageFailed and returns err unchanged.
func (f *Flow) Fail(err error) error {
	if f.stage != StageFailed && f.stage != StageCommitted {
		_ = f.Advance(StageFailed)
	}
	return err
}

func (f *Flow) allowed(next Stage) bool {
	for _, s := range transitions[f.stage] {
		if s == next {
			return true
		}
	}
	return false
}
