package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OptionKind tags a selectable reference entity
type OptionKind string

const (
	OptionBranch     OptionKind = "branch"
	OptionDepartment OptionKind = "department"
	OptionSupplier   OptionKind = "supplier"
	OptionCategory   OptionKind = "category"
)

// OptionKinds lists every selectable kind
var OptionKinds = []OptionKind{OptionBranch, OptionDepartment, OptionSupplier, OptionCategory}

func (k OptionKind) Valid() bool {
	switch k {
	case OptionBranch, OptionDepartment, OptionSupplier, OptionCategory:
		return true
	}
	return false
}

// Option is the select-friendly projection of a reference entity
type Option struct {
	Kind  OptionKind `json:"kind"`
	ID    uuid.UUID  `json:"id"`
	Label string     `json:"label"`
}

// Branch is an organization's physical or legal location
type Branch struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Address        string         `gorm:"type:text" json:"address"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b Branch) Option() Option {
	return Option{Kind: OptionBranch, ID: b.ID, Label: b.Name}
}

// Department owns requisitions and budgets
type Department struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Code           string         `gorm:"type:varchar(50)" json:"code"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Option labels departments as "CODE - Name" when a code is set
func (d Department) Option() Option {
	label := d.Name
	if d.Code != "" {
		label = d.Code + " - " + d.Name
	}
	return Option{Kind: OptionDepartment, ID: d.ID, Label: label}
}

// Category groups budgets by spend type
type Category struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c Category) Option() Option {
	return Option{Kind: OptionCategory, ID: c.ID, Label: c.Name}
}

// Supplier is a vendor that purchase orders are raised against
type Supplier struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	CompanyName    string         `gorm:"type:varchar(255)" json:"company_name"`
	TaxCode        string         `gorm:"type:varchar(50)" json:"tax_code"`
	ContactPerson  string         `gorm:"type:varchar(255)" json:"contact_person"`
	Phone          string         `gorm:"type:varchar(50)" json:"phone"`
	Email          string         `gorm:"type:varchar(255)" json:"email"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Option prefers the registered company name over the trading name
func (s Supplier) Option() Option {
	label := s.Name
	if s.CompanyName != "" {
		label = s.CompanyName
	}
	return Option{Kind: OptionSupplier, ID: s.ID, Label: label}
}
