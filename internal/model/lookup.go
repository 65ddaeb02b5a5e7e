package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	StatusReadyForExecutionID = uuid.MustParse("c566154a-84fa-4a2c-bb1b-cbda11ed6866")
	StatusConfirmedID         = uuid.MustParse("89137355-7743-41f8-a7a2-51fbe6e556ae")
	StatusOnHoldID            = uuid.MustParse("622c0735-0c5f-4a98-8c4b-39bacfb1f54a")
	StatusInProgressID        = uuid.MustParse("6f3d8caa-ca80-4117-8d03-c487c43338bc")
	StatusNeedReviewID        = uuid.MustParse("6a267320-6ef3-4987-a863-4e4474c0416c")

	UserRoleProviderID      = uuid.MustParse("994110d2-e433-46c7-b172-add9b59c1343")
	UserRoleFreeMemberID    = uuid.MustParse("b73d082d-f0f7-4d63-a44b-688f726dd26b")
	UserRolePremiumMemberID = uuid.MustParse("faa6e9b9-1048-473c-9f6e-aa906183c6da")
	UserRoleAdminID         = uuid.MustParse("c5b21bde-34e2-4e24-87c4-0c48f3114388")
	UserRoleDeagloAdminID   = uuid.MustParse("c2c7c40c-56e1-4576-9309-7ca3fb7cac89")
)

type TypeCurrency struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code            string    `gorm:"size:3;not null;index"`
	Name            string    `gorm:"size:50;not null"`
	CountryName     string    `gorm:"size:50"`
	FlagURL         string    `gorm:"size:255"`
	SortOrder       int
	IsAnalysis      bool
	IsSpotHistory   bool
	IsFwdEfficiency bool
	IsFxMovement    bool
	Base
}

func (m *TypeCurrency) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type TypeStatus struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string    `gorm:"size:50;not null"`
	Color string    `gorm:"size:20"`
	Base
}

func (m *TypeStatus) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type TypeTool struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"size:50;not null"`
	SortOrder      int
	IsAnalysisTool bool
	IsMarketTool   bool
	IsHedgingTool  bool
	Base
}

func (m *TypeTool) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type TypeCategory struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"size:50;not null"`
	Base
}

func (m *TypeCategory) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type TypeAnalysisRole struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:50;not null"`
	Level       int
	Description string `gorm:"size:255"`
	Base
}

func (m *TypeAnalysisRole) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type TypeUserRole struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:50;not null"`
	Level       int
	Description string `gorm:"size:255"`
	Base
}

func (m *TypeUserRole) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
