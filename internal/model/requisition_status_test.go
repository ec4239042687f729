package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/pkg/apperror"
)

func TestNextDocumentedTransitions(t *testing.T) {
	tests := []struct {
		from   RequisitionStatus
		action RequisitionAction
		want   RequisitionStatus
	}{
		{RequisitionInitialized, ActionSaveDraft, RequisitionSavedForLater},
		{RequisitionInitialized, ActionFinalize, RequisitionPending},
		{RequisitionSavedForLater, ActionSaveDraft, RequisitionSavedForLater},
		{RequisitionSavedForLater, ActionFinalize, RequisitionPending},
		{RequisitionPending, ActionApprove, RequisitionApproved},
		{RequisitionPending, ActionReject, RequisitionRejected},
		{RequisitionPending, ActionRequestModification, RequisitionRequestedModification},
		{RequisitionRequestedModification, ActionResubmit, RequisitionPending},
	}

	for _, tt := range tests {
		got, err := tt.from.Next(tt.action)
		require.NoError(t, err, "%s + %s", tt.from, tt.action)
		assert.Equal(t, tt.want, got)
	}
}

func TestNextRejectsNonAdjacent(t *testing.T) {
	got, err := RequisitionApproved.Next(ActionSaveDraft)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, RequisitionApproved, got)
	assert.Contains(t, err.Error(), "APPROVED")
	assert.Contains(t, err.Error(), "SAVED_FOR_LATER")
}

// Random (state, action) pairs must only produce the documented next state or InvalidTransition.
func TestNextRandomPairsStayInsideAdjacency(t *testing.T) {
	allowed := map[RequisitionStatus]map[RequisitionAction]RequisitionStatus{
		RequisitionInitialized:           {ActionSaveDraft: RequisitionSavedForLater, ActionFinalize: RequisitionPending},
		RequisitionSavedForLater:         {ActionSaveDraft: RequisitionSavedForLater, ActionFinalize: RequisitionPending},
		RequisitionPending:               {ActionApprove: RequisitionApproved, ActionReject: RequisitionRejected, ActionRequestModification: RequisitionRequestedModification},
		RequisitionRequestedModification: {ActionResubmit: RequisitionPending},
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		from := RequisitionStatuses[rng.Intn(len(RequisitionStatuses))]
		action := RequisitionActions[rng.Intn(len(RequisitionActions))]

		got, err := from.Next(action)
		if want, ok := allowed[from][action]; ok {
			require.NoError(t, err)
			require.Equal(t, want, got)
			continue
		}
		require.ErrorIs(t, err, apperror.ErrInvalidTransition, "%s + %s", from, action)
		require.Equal(t, from, got)
	}
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	for _, s := range []RequisitionStatus{RequisitionApproved, RequisitionRejected} {
		assert.True(t, s.Terminal())
		assert.False(t, s.Mutable())
		for _, a := range RequisitionActions {
			_, err := s.Next(a)
			assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
		}
	}
}

func TestUnknownActionIsValidationError(t *testing.T) {
	_, err := RequisitionPending.Next(RequisitionAction("ESCALATE"))
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestParseRequisitionStatus(t *testing.T) {
	s, err := ParseRequisitionStatus(" saved_for_later ")
	require.NoError(t, err)
	assert.Equal(t, RequisitionSavedForLater, s)

	_, err = ParseRequisitionStatus("archived")
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestDecisionAction(t *testing.T) {
	a, err := DecisionAction(RequisitionRequestedModification)
	require.NoError(t, err)
	assert.Equal(t, ActionRequestModification, a)
	assert.True(t, a.ApproverOnly())

	_, err = DecisionAction(RequisitionPending)
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)
}

func TestMutableStatuses(t *testing.T) {
	assert.True(t, RequisitionInitialized.Mutable())
	assert.True(t, RequisitionSavedForLater.Mutable())
	assert.True(t, RequisitionRequestedModification.Mutable())
	assert.False(t, RequisitionPending.Mutable())
}
