package trade

import (
	"testing"

	"bank/internal/model/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestFlowHappyPath(t *testing.T) {
	f := NewFlow(enum.SideBuy, "AAPL")
	require.NoError(t, f.Advance(StageValidated))
	require.NoError(t, f.Advance(StagePriced))
	require.NoError(t, f.Advance(StageLedgerChecked))
	require.NoError(t, f.Advance(StageCommitted))

	assert.Equal(t, StageCommitted, f.Stage())
	assert.Equal(t, []Stage{StageValidated, StagePriced, StageLedgerChecked, StageCommitted}, f.History())
}

func TestFlowRejectsSkippedStages(t *testing.T) {
	f := NewFlow(enum.SideSell, "AAPL")
	require.NoError(t, f.Advance(StageValidated))

	err := f.Advance(StageCommitted)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StageValidated, f.Stage())
}

func TestFlowFail(t *testing.T) {
	f := NewFlow(enum.SideBuy, "AAPL")
	require.NoError(t, f.Advance(StageValidated))
	require.NoError(t, f.Advance(StagePriced))

	cause := errors.New("boom")
	assert.Equal(t, cause, f.Fail(cause))
	assert.Equal(t, StageFailed, f.Stage())
	assert.Equal(t, StagePriced, f.FailedAt())

	// terminal
	assert.True(t, errors.Is(f.Advance(StageCommitted), ErrInvalidTransition))
	f.Fail(cause)
	assert.Equal(t, StagePriced, f.FailedAt())
}
