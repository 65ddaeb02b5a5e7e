package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MarginSimulation struct {
	ID                        uuid.UUID           `gorm:"type:uuid;primaryKey"`
	ResultID                  uuid.UUID           `gorm:"type:uuid;not null"`
	Name                      string              `gorm:"size:100;not null"`
	AnalysisID                uuid.UUID           `gorm:"type:uuid;not null;index"`
	StrategySimulationID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	StrategySimulation        *StrategySimulation `gorm:"foreignKey:StrategySimulationID"`
	TypeStatusID              uuid.UUID           `gorm:"type:uuid;not null"`
	TypeStatus                *TypeStatus         `gorm:"foreignKey:TypeStatusID"`
	MinimumTransferAmount     decimal.Decimal     `gorm:"type:decimal(20,2);not null"`
	InitialMarginPercentage   float64
	VariationMarginPercentage float64
	Pin                       bool
	SimulationStatus          string `gorm:"size:20;not null"`
	Base
}

func (m *MarginSimulation) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.TypeStatusID == uuid.Nil {
		m.TypeStatusID = StatusInProgressID
	}
	if m.SimulationStatus == "" {
		m.SimulationStatus = SimulationEnqueued
	}
	return nil
}

func (m *MarginSimulation) BeforeSave(*gorm.DB) error {
	m.ResultID = uuid.New()
	return nil
}

// HarvestEntry is one dated cash flow: negative amounts deploy capital,
// positive amounts harvest it. On the wire it is a ["YYYY-MM-DD", amount] pair.
type HarvestEntry struct {
	Date   Date
	Amount float64
}

func (h HarvestEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{h.Date.String(), h.Amount})
}

func (h *HarvestEntry) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("harvest entry must be a [date, amount] pair")
	}
	if err := h.Date.UnmarshalJSON(pair[0]); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &h.Amount)
}

type HedgeSimulation struct {
	ID                      uuid.UUID              `gorm:"type:uuid;primaryKey"`
	ResultID                uuid.UUID              `gorm:"type:uuid;not null"`
	Name                    string                 `gorm:"size:255;not null"`
	AnalysisID              uuid.UUID              `gorm:"type:uuid;not null;index"`
	Analysis                *Analysis              `gorm:"foreignKey:AnalysisID"`
	SimulationEnvironmentID uuid.UUID              `gorm:"type:uuid;not null"`
	SimulationEnvironment   *SimulationEnvironment `gorm:"foreignKey:SimulationEnvironmentID"`
	TypeStatusID            uuid.UUID              `gorm:"type:uuid;not null"`
	TypeStatus              *TypeStatus            `gorm:"foreignKey:TypeStatusID"`
	StartDate               Date
	EndDate                 Date
	FwdRates                [][]float64    `gorm:"serializer:json"`
	Harvest                 []HarvestEntry `gorm:"serializer:json"`
	Pin                     bool
	SimulationStatus        string `gorm:"size:20;not null"`
	Base
}

func (m *HedgeSimulation) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.TypeStatusID == uuid.Nil {
		m.TypeStatusID = StatusInProgressID
	}
	if m.SimulationStatus == "" {
		m.SimulationStatus = SimulationEnqueued
	}
	return nil
}

func (m *HedgeSimulation) BeforeSave(*gorm.DB) error {
	m.ResultID = uuid.New()
	return nil
}

// FilePath is the object key of the uploaded harvest input.
func (m *HedgeSimulation) FilePath(userID uuid.UUID) string {
	return fmt.Sprintf("%s/%s-input.csv", userID, m.ID)
}

// ApplyHarvestDates derives the simulation window from the harvest series.
func (m *HedgeSimulation) ApplyHarvestDates() {
	if len(m.Harvest) == 0 {
		return
	}
	m.StartDate = m.Harvest[0].Date
	m.EndDate = m.Harvest[len(m.Harvest)-1].Date
}

// HarvestSpan is the distance between the first and last harvest entries.
func HarvestSpan(entries []HarvestEntry) time.Duration {
	if len(entries) < 2 {
		return 0
	}
	return entries[len(entries)-1].Date.Sub(entries[0].Date.Time)
}
