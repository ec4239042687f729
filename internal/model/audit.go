package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionInitializeRequisition = "INITIALIZE_REQUISITION"
	ActionSaveRequisitionDraft  = "SAVE_REQUISITION_DRAFT"
	ActionFinalizeRequisition   = "FINALIZE_REQUISITION"
	ActionResubmitRequisition   = "RESUBMIT_REQUISITION"
	ActionDecideRequisition     = "DECIDE_REQUISITION"
	ActionDeleteRequisition     = "DELETE_REQUISITION"
	ActionAllocateBudget        = "ALLOCATE_BUDGET"
	ActionDeleteBudget          = "DELETE_BUDGET"
	ActionCreatePurchaseOrder   = "CREATE_PURCHASE_ORDER"
	ActionDecidePurchaseOrder   = "DECIDE_PURCHASE_ORDER"
)

// AuditLog tracks Who, What, and When for critical procurement changes
type AuditLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Action         string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID       string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName     string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // PR/PO number or budget name
	Details        string     `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
