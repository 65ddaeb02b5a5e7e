package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FxCurrencyPair struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey"`
	BaseCurrencyID    uuid.UUID     `gorm:"type:uuid;not null;index:idx_fx_pair"`
	BaseCurrency      *TypeCurrency `gorm:"foreignKey:BaseCurrencyID"`
	ForeignCurrencyID uuid.UUID     `gorm:"type:uuid;not null;index:idx_fx_pair"`
	ForeignCurrency   *TypeCurrency `gorm:"foreignKey:ForeignCurrencyID"`
	Base
}

func (m *FxCurrencyPair) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type FwdEfficiency struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID     `gorm:"type:uuid;not null;index"`
	Name              *string       `gorm:"size:100"`
	BaseCurrencyID    uuid.UUID     `gorm:"type:uuid;not null"`
	BaseCurrency      *TypeCurrency `gorm:"foreignKey:BaseCurrencyID"`
	ForeignCurrencyID uuid.UUID     `gorm:"type:uuid;not null"`
	ForeignCurrency   *TypeCurrency `gorm:"foreignKey:ForeignCurrencyID"`
	Duration          int           `gorm:"not null"`
	IsDefault         bool
	Base
}

func (m *FwdEfficiency) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type SpotHistory struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID     `gorm:"type:uuid;not null;index"`
	Name              *string       `gorm:"size:100"`
	BaseCurrencyID    uuid.UUID     `gorm:"type:uuid;not null"`
	BaseCurrency      *TypeCurrency `gorm:"foreignKey:BaseCurrencyID"`
	ForeignCurrencyID uuid.UUID     `gorm:"type:uuid;not null"`
	ForeignCurrency   *TypeCurrency `gorm:"foreignKey:ForeignCurrencyID"`
	Duration          int           `gorm:"not null"`
	Layered           bool
	IsDefault         bool
	Base
}

func (m *SpotHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type FxMovement struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	Name          *string          `gorm:"size:100"`
	CurrencyPairs []FxCurrencyPair `gorm:"many2many:fx_movement_currency_pairs"`
	Duration      int              `gorm:"not null"`
	IsDefault     bool
	Base
}

func (m *FxMovement) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// SpotHistoryData is a daily USD rate for one currency code.
type SpotHistoryData struct {
	ID       uint   `gorm:"primaryKey"`
	Date     Date   `gorm:"not null;uniqueIndex:idx_spot_date_currency;index"`
	Currency string `gorm:"size:3;not null;uniqueIndex:idx_spot_date_currency"`
	Rate     float64
}

func (SpotHistoryData) TableName() string {
	return "spot_history_data"
}
