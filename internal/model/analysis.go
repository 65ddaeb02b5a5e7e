package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Analysis struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID     `gorm:"type:uuid;not null;index"`
	User              *User         `gorm:"foreignKey:UserID"`
	Name              string        `gorm:"size:100;not null"`
	TypeCategoryID    *uuid.UUID    `gorm:"type:uuid"`
	TypeCategory      *TypeCategory `gorm:"foreignKey:TypeCategoryID"`
	BaseCurrencyID    uuid.UUID     `gorm:"type:uuid;not null"`
	BaseCurrency      *TypeCurrency `gorm:"foreignKey:BaseCurrencyID"`
	ForeignCurrencyID uuid.UUID     `gorm:"type:uuid;not null"`
	ForeignCurrency   *TypeCurrency `gorm:"foreignKey:ForeignCurrencyID"`
	OrganizationID    *uuid.UUID    `gorm:"type:uuid"`
	Organization      *Organization `gorm:"foreignKey:OrganizationID"`
	Base
}

func (m *Analysis) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// AnalysisUserShareMap grants another user a role on an analysis.
type AnalysisUserShareMap struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	AnalysisID         uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID             uuid.UUID `gorm:"type:uuid;not null"`
	TypeAnalysisRoleID uuid.UUID `gorm:"type:uuid;not null"`
	URL                string    `gorm:"size:255"`
	Base
}

func (m *AnalysisUserShareMap) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type AnalysisOrganizationShareMap struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	AnalysisID         uuid.UUID `gorm:"type:uuid;not null;index"`
	OrganizationID     uuid.UUID `gorm:"type:uuid;not null"`
	TypeAnalysisRoleID uuid.UUID `gorm:"type:uuid;not null"`
	URL                string    `gorm:"size:255"`
	Base
}

func (m *AnalysisOrganizationShareMap) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type Workspace struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index"`
	Name           string        `gorm:"size:255;not null"`
	BaseCurrencyID *uuid.UUID    `gorm:"type:uuid"`
	BaseCurrency   *TypeCurrency `gorm:"foreignKey:BaseCurrencyID"`
	Analyses       []Analysis    `gorm:"many2many:workspace_analyses"`
	Base
}

func (m *Workspace) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type SimulationEnvironment struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name                string    `gorm:"size:50"`
	Volatility          float64
	Skew                float64
	AppreciationPercent float64
	Base
}

func (m *SimulationEnvironment) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
