package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DisplayModeITMS    = "itms"
	DisplayModeITMF    = "itmf"
	DisplayModeNumeric = "numeric"
)

// CompanyTypes maps the stored code to its label.
var CompanyTypes = map[string]string{
	"BF":       "Bank/Financial Institution",
	"MNC":      "Multinational Corporation",
	"IE":       "Import/Export",
	"HEDGE":    "Hedge Fund",
	"ALT":      "Alternative Investments",
	"FAM_OFF":  "Family Office",
	"INST_INV": "Institutional Investor",
	"SME":      "Small/Medium Enterprise",
	"GNP":      "Government/Non-Profit",
	"TECH":     "Technology",
	"CONS":     "Consulting",
	"NGO":      "Non-Governmental Organization",
	"CHAR":     "Charity",
}

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName      string    `gorm:"size:100"`
	LastName       string    `gorm:"size:100"`
	Email          string    `gorm:"size:254;uniqueIndex;not null"`
	Password       string    `gorm:"size:128"`
	PhoneNumber    *string   `gorm:"size:20"`
	City           *string   `gorm:"size:100"`
	State          *string   `gorm:"size:100"`
	ZipCode        *string   `gorm:"size:12"`
	Country        *string   `gorm:"size:100"`
	Company        *string   `gorm:"size:100"`
	JobTitle       *string   `gorm:"size:100"`
	CompanyType    *string   `gorm:"size:10"`
	IsVerified     bool      `gorm:"not null"`
	IsActive       bool      `gorm:"not null"`
	LastLogin      *time.Time
	TypeUserRoleID uuid.UUID        `gorm:"type:uuid;not null"`
	TypeUserRole   *TypeUserRole    `gorm:"foreignKey:TypeUserRoleID"`
	OrganizationID *uuid.UUID       `gorm:"type:uuid;index"`
	Organization   *Organization    `gorm:"foreignKey:OrganizationID"`
	Preferences    *UserPreferences `gorm:"foreignKey:UserID"`
	SSO            *SSO             `gorm:"foreignKey:UserID"`
	Base
}

func (m *User) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.TypeUserRoleID == uuid.Nil {
		m.TypeUserRoleID = UserRoleFreeMemberID
	}
	return nil
}

func (m *User) IsStaff() bool {
	return m.TypeUserRoleID == UserRoleDeagloAdminID
}

// Level is the role name as carried in the access token, e.g. FREE_MEMBER.
func (m *User) Level() string {
	if m.TypeUserRole == nil {
		return ""
	}
	return strings.ReplaceAll(strings.ToUpper(m.TypeUserRole.Name), " ", "_")
}

type UserPreferences struct {
	ID                             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID                         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	ValueDisplayMode               string    `gorm:"size:10;not null"`
	SimulationToolbarStrategyAdded bool
	SimulationToolbarMarginAdded   bool
	SimulationToolbarHedgeIRRAdded bool
	Base
}

func (m *UserPreferences) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.ValueDisplayMode == "" {
		m.ValueDisplayMode = DisplayModeITMS
	}
	return nil
}

// OTP is the single outstanding one-time code for a user.
type OTP struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Code      string    `gorm:"size:6;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Base
}

func (m *OTP) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

func (m *OTP) Expired(now time.Time) bool {
	return now.After(m.ExpiresAt)
}

type SSO struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	LinkedinID *string   `gorm:"size:100;index"`
	Base
}

func (m *SSO) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type Organization struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string    `gorm:"size:100;not null"`
	Users []User    `gorm:"foreignKey:OrganizationID"`
	Base
}

func (m *Organization) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
