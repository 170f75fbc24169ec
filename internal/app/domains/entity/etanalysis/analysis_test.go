package etanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etprediction"
)

func TestNew(t *testing.T) {
	a, err := New("a-1", "s-1")
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, a.Status)
	assert.Equal(t, "s-1", a.SessionID)

	_, err = New("", "s-1")
	assert.ErrorIs(t, err, ErrInvalidAnalysisID)
}

func TestAnalysis_SuccessPath(t *testing.T) {
	a, _ := New("a-1", "")
	require.NoError(t, a.Submit())
	assert.Equal(t, StatusSubmitting, a.Status)

	records := []etprediction.PredictionRecord{{{Condition: "AF", Probability: 0.3}}, {{Condition: "AF", Probability: 0.1}}}
	require.NoError(t, a.Succeed(records, "ok"))

	assert.Equal(t, StatusSucceeded, a.Status)
	assert.True(t, a.Status.IsTerminal())
	assert.Equal(t, "ok", a.Message)

	primary, ok := a.Primary()
	require.True(t, ok)
	assert.Equal(t, records[0], primary)
}

func TestAnalysis_EmptyResultSucceeds(t *testing.T) {
	a, _ := New("a-1", "")
	require.NoError(t, a.Submit())
	require.NoError(t, a.Succeed(nil, ""))

	assert.NotNil(t, a.Records)
	_, ok := a.Primary()
	assert.False(t, ok)
}

func TestAnalysis_FailurePath(t *testing.T) {
	a, _ := New("a-1", "")
	require.NoError(t, a.Submit())
	require.NoError(t, a.Fail(FailureClassifierUnavailable, "status 500"))

	assert.Equal(t, StatusFailed, a.Status)
	assert.Equal(t, FailureClassifierUnavailable, a.FailureKind)
	assert.Equal(t, "status 500", a.FailureReason)
	assert.Empty(t, a.Records)
}

func TestAnalysis_IllegalTransitions(t *testing.T) {
	idle, _ := New("a-1", "")
	assert.ErrorIs(t, idle.Succeed(nil, ""), ErrInvalidTransition)
	assert.ErrorIs(t, idle.Fail(FailureInvalidInput, "x"), ErrInvalidTransition)
	assert.Equal(t, StatusIdle, idle.Status)

	done, _ := New("a-2", "")
	require.NoError(t, done.Submit())
	assert.ErrorIs(t, done.Submit(), ErrInvalidTransition)
	require.NoError(t, done.Succeed(nil, ""))
	assert.ErrorIs(t, done.Submit(), ErrInvalidTransition)
	assert.ErrorIs(t, done.Fail(FailureDispatchFailed, "late"), ErrInvalidTransition)
	assert.Equal(t, StatusSucceeded, done.Status)

	failed, _ := New("a-3", "")
	require.NoError(t, failed.Submit())
	require.NoError(t, failed.Fail(FailureInvalidPredictionFormat, "bad"))
	assert.ErrorIs(t, failed.Succeed(nil, ""), ErrInvalidTransition)
	assert.Equal(t, FailureInvalidPredictionFormat, failed.FailureKind)
}
