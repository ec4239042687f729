package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Requisition is a request to purchase goods or services, routed through approval
// and finally converted into a PurchaseOrder.
type Requisition struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_requisitions_org_pr;index" json:"organization_id"`
	PRNumber       string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_requisitions_org_pr" json:"pr_number"`

	DepartmentID *uuid.UUID `gorm:"type:uuid;index" json:"department_id"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	SupplierID   *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id"`
	BudgetID     *uuid.UUID `gorm:"type:uuid;index" json:"budget_id"`

	RequestorName      string     `gorm:"type:varchar(255)" json:"requestor_name"`
	RequestorPhone     string     `gorm:"type:varchar(50)" json:"requestor_phone"`
	RequestorEmail     string     `gorm:"type:varchar(255)" json:"requestor_email"`
	RequestDescription string     `gorm:"type:text" json:"request_description"`
	Justification      string     `gorm:"type:text" json:"justification"`
	NeededByDate       *time.Time `json:"needed_by_date"`
	Currency           string     `gorm:"type:varchar(10);not null;default:'NGN'" json:"currency"`

	Status         RequisitionStatus `gorm:"type:varchar(30);not null;default:'INITIALIZED';index" json:"status"`
	ReservedAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"reserved_amount"` // held against BudgetID while PENDING/APPROVED

	CreatedBy       *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	DecidedBy       *uuid.UUID `gorm:"type:uuid" json:"decided_by"`
	DecidedAt       *time.Time `json:"decided_at"`
	DecisionComment string     `gorm:"type:text" json:"decision_comment"`
	SubmittedAt     *time.Time `json:"submitted_at"`

	Items     []LineItem `gorm:"foreignKey:RequisitionID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (r *Requisition) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Totals aggregates the loaded line items.
func (r *Requisition) Totals() LineTotals {
	return SumLineItems(r.Items)
}
