package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus constants
const (
	OrderStatusPending  = "PENDING"
	OrderStatusApproved = "APPROVED"
	OrderStatusRejected = "REJECTED"
)

// PurchaseOrder is the committed spend produced from exactly one approved Requisition.
// The unique index on request_id is the last line of defence against double conversion.
type PurchaseOrder struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_orders_org_po" json:"organization_id"`
	PONumber       string          `gorm:"column:po_number;type:varchar(30);not null;uniqueIndex:idx_orders_org_po" json:"po_number"`
	RequestID      uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"request_id"`
	Requisition    *Requisition    `gorm:"foreignKey:RequestID" json:"requisition,omitempty"`
	SupplierID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	Currency       string          `gorm:"type:varchar(10);not null" json:"currency"`
	AttachmentURL  string          `gorm:"type:text" json:"attachment_url"`
	Status         string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	ApprovedBy     *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt     *time.Time      `json:"approved_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
