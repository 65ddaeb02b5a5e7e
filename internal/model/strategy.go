package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SimulationEnqueued   = "ENQUEUED"
	SimulationInProgress = "IN PROGRESS"
	SimulationCompleted  = "COMPLETED"
	SimulationFailed     = "FAILED"
)

// Strategy is a reusable template. A nil CreatedByUserID marks a default
// strategy visible to everyone.
type Strategy struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"size:100;not null"`
	Description     string    `gorm:"size:300"`
	SortOrder       *int
	ImageURL        *string       `gorm:"size:255"`
	CreatedByUserID *uuid.UUID    `gorm:"type:uuid;index"`
	Legs            []StrategyLeg `gorm:"foreignKey:StrategyID"`
	Base
}

func (m *Strategy) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

func (m *Strategy) IsCustom() bool {
	return m.CreatedByUserID != nil
}

type StrategyLeg struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	StrategyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Strategy     *Strategy `gorm:"foreignKey:StrategyID"`
	SortOrder    *int
	ImageURL     *string `gorm:"size:255"`
	IsCall       *bool
	IsBought     bool            `gorm:"not null"`
	Premium      decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Leverage     float64         `gorm:"not null"`
	Strike       *float64
	BarrierType  *string `gorm:"size:8"`
	BarrierLevel *float64
	Base
}

func (m *StrategyLeg) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type StrategySimulation struct {
	ID                      uuid.UUID              `gorm:"type:uuid;primaryKey"`
	ResultID                uuid.UUID              `gorm:"type:uuid;not null"`
	Name                    string                 `gorm:"size:100;not null"`
	AnalysisID              uuid.UUID              `gorm:"type:uuid;not null;index"`
	Analysis                *Analysis              `gorm:"foreignKey:AnalysisID"`
	SimulationEnvironmentID uuid.UUID              `gorm:"type:uuid;not null"`
	SimulationEnvironment   *SimulationEnvironment `gorm:"foreignKey:SimulationEnvironmentID"`
	TypeStatusID            uuid.UUID              `gorm:"type:uuid;not null"`
	TypeStatus              *TypeStatus            `gorm:"foreignKey:TypeStatusID"`
	StartDate               Date
	EndDate                 Date
	Notional                decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	SpotRateOverride        *float64
	ForwardRateOverride     *float64
	IsBaseSold              bool
	InitialSpotRate         float64
	InitialForwardRate      float64
	Spread                  float64
	Pin                     bool
	SimulationStatus        string             `gorm:"size:20;not null"`
	Instances               []StrategyInstance `gorm:"foreignKey:StrategySimulationID"`
	Base
}

func (m *StrategySimulation) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.TypeStatusID == uuid.Nil {
		m.TypeStatusID = StatusInProgressID
	}
	if m.SimulationStatus == "" {
		m.SimulationStatus = SimulationEnqueued
	}
	return nil
}

// BeforeSave issues a fresh result id. Column-only updates (pin toggles,
// soft deletes) bypass hooks and keep the current one.
func (m *StrategySimulation) BeforeSave(*gorm.DB) error {
	m.ResultID = uuid.New()
	return nil
}

type StrategyInstance struct {
	ID                   uuid.UUID    `gorm:"type:uuid;primaryKey"`
	StrategySimulationID uuid.UUID    `gorm:"type:uuid;not null;index"`
	StrategyLegID        uuid.UUID    `gorm:"type:uuid;not null"`
	StrategyLeg          *StrategyLeg `gorm:"foreignKey:StrategyLegID"`
	PremiumOverride      *float64
	LeverageOverride     *float64
	StrikeOverride       *float64
	InstanceGroup        int `gorm:"not null;default:1"`
	Base
}

func (m *StrategyInstance) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
