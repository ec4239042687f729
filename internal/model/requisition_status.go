package model

import (
	"strings"

	"procurement/pkg/apperror"
)

// RequisitionStatus is the lifecycle state of a Requisition.
type RequisitionStatus string

const (
	RequisitionInitialized           RequisitionStatus = "INITIALIZED"
	RequisitionSavedForLater         RequisitionStatus = "SAVED_FOR_LATER"
	RequisitionPending               RequisitionStatus = "PENDING"
	RequisitionApproved              RequisitionStatus = "APPROVED"
	RequisitionRejected              RequisitionStatus = "REJECTED"
	RequisitionRequestedModification RequisitionStatus = "REQUESTED_MODIFICATION"
)

// RequisitionStatuses lists every status in display order.
var RequisitionStatuses = []RequisitionStatus{
	RequisitionInitialized,
	RequisitionSavedForLater,
	RequisitionPending,
	RequisitionApproved,
	RequisitionRejected,
	RequisitionRequestedModification,
}

// RequisitionAction is a user or approver intent applied to a requisition.
type RequisitionAction string

const (
	ActionSaveDraft           RequisitionAction = "SAVE_DRAFT"
	ActionFinalize            RequisitionAction = "FINALIZE"
	ActionApprove             RequisitionAction = "APPROVE"
	ActionReject              RequisitionAction = "REJECT"
	ActionRequestModification RequisitionAction = "REQUEST_MODIFICATION"
	ActionResubmit            RequisitionAction = "RESUBMIT"
)

// RequisitionActions lists every action.
var RequisitionActions = []RequisitionAction{
	ActionSaveDraft,
	ActionFinalize,
	ActionApprove,
	ActionReject,
	ActionRequestModification,
	ActionResubmit,
}

var actionTargets = map[RequisitionAction]RequisitionStatus{
	ActionSaveDraft:           RequisitionSavedForLater,
	ActionFinalize:            RequisitionPending,
	ActionApprove:             RequisitionApproved,
	ActionReject:              RequisitionRejected,
	ActionRequestModification: RequisitionRequestedModification,
	ActionResubmit:            RequisitionPending,
}

// requisitionTransitions is the full adjacency; anything absent is illegal.
var requisitionTransitions = map[RequisitionStatus]map[RequisitionAction]bool{
	RequisitionInitialized: {
		ActionSaveDraft: true,
		ActionFinalize:  true,
	},
	RequisitionSavedForLater: {
		ActionSaveDraft: true,
		ActionFinalize:  true,
	},
	RequisitionPending: {
		ActionApprove:             true,
		ActionReject:              true,
		ActionRequestModification: true,
	},
	RequisitionRequestedModification: {
		ActionResubmit: true,
	},
}

// Target is the status an action requests.
func (a RequisitionAction) Target() RequisitionStatus {
	return actionTargets[a]
}

// ApproverOnly reports whether only an approver may apply the action.
func (a RequisitionAction) ApproverOnly() bool {
	return a == ActionApprove || a == ActionReject || a == ActionRequestModification
}

// Valid reports whether s is a known status.
func (s RequisitionStatus) Valid() bool {
	for _, known := range RequisitionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Mutable reports whether the requestor may edit fields and line items.
func (s RequisitionStatus) Mutable() bool {
	switch s {
	case RequisitionInitialized, RequisitionSavedForLater, RequisitionRequestedModification:
		return true
	}
	return false
}

// Terminal reports whether the requestor can no longer move the requisition.
func (s RequisitionStatus) Terminal() bool {
	return s == RequisitionApproved || s == RequisitionRejected
}

// HoldsReservation reports whether a budget reservation is live in this status.
func (s RequisitionStatus) HoldsReservation() bool {
	return s == RequisitionPending || s == RequisitionApproved
}

// Next applies action to s, returning the new status or an InvalidTransition error.
func (s RequisitionStatus) Next(action RequisitionAction) (RequisitionStatus, error) {
	target, known := actionTargets[action]
	if !known {
		return s, apperror.Validation("unknown requisition action %q", action)
	}
	if !requisitionTransitions[s][action] {
		return s, apperror.InvalidTransition(string(s), string(target))
	}
	return target, nil
}

// ParseRequisitionStatus accepts any letter case.
func ParseRequisitionStatus(raw string) (RequisitionStatus, error) {
	s := RequisitionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperror.Validation("unknown requisition status %q", raw)
	}
	return s, nil
}

// DecisionAction maps an approver decision status onto its action.
func DecisionAction(decision RequisitionStatus) (RequisitionAction, error) {
	switch decision {
	case RequisitionApproved:
		return ActionApprove, nil
	case RequisitionRejected:
		return ActionReject, nil
	case RequisitionRequestedModification:
		return ActionRequestModification, nil
	}
	return "", apperror.Validation("decision must be APPROVED, REJECTED or REQUESTED_MODIFICATION, got %s", decision)
}

func (s RequisitionStatus) String() string {
	return string(s)
}
