package service

import (
	"context"
	"errors"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
)

type PreferencesRequest struct {
	ValueDisplayMode               *string `json:"valueDisplayMode" binding:"omitempty,oneof=itms itmf numeric"`
	SimulationToolbarStrategyAdded *bool   `json:"simulationToolbarStrategyAdded"`
	SimulationToolbarMarginAdded   *bool   `json:"simulationToolbarMarginAdded"`
	SimulationToolbarHedgeIRRAdded *bool   `json:"simulationToolbarHedgeIrrAdded"`
}

// UserRequest carries the self-service profile fields. Nil means "not sent".
type UserRequest struct {
	FirstName   *string             `json:"firstName" binding:"omitempty,max=100"`
	LastName    *string             `json:"lastName" binding:"omitempty,max=100"`
	Email       *string             `json:"email" binding:"omitempty,email,max=254"`
	Password    *string             `json:"password"`
	PhoneNumber *string             `json:"phoneNumber" binding:"omitempty,max=20"`
	City        *string             `json:"city" binding:"omitempty,max=100"`
	State       *string             `json:"state" binding:"omitempty,max=100"`
	ZipCode     *string             `json:"zipCode" binding:"omitempty,max=12"`
	Country     *string             `json:"country" binding:"omitempty,max=100"`
	Company     *string             `json:"company" binding:"omitempty,max=100"`
	JobTitle    *string             `json:"jobTitle" binding:"omitempty,max=100"`
	CompanyType *string             `json:"companyType" binding:"omitempty,oneof=BF MNC IE HEDGE ALT FAM_OFF INST_INV SME GNP TECH CONS NGO CHAR"`
	Preferences *PreferencesRequest `json:"preferences"`
}

type UserService struct {
	store *repository.Store
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return u, err
}

// Update applies a partial profile update, preferences included.
func (s *UserService) Update(ctx context.Context, u *model.User, req UserRequest) (*model.User, error) {
	if err := applyUserRequest(ctx, s.store, u, req); err != nil {
		return nil, err
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		if req.Preferences != nil && u.Preferences != nil {
			return tx.SavePreferences(ctx, u.Preferences)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.SoftDeleteUser(ctx, id)
}

// applyUserRequest copies the sent fields onto u. A new password is checked
// against the policy and hashed; a new e-mail must be free.
func applyUserRequest(ctx context.Context, store *repository.Store, u *model.User, req UserRequest) error {
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		taken, err := store.EmailTaken(ctx, email, u.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewFieldError("email", "user with this email already exists.")
		}
		u.Email = email
	}
	if req.Password != nil {
		if err := ValidatePassword(*req.Password, u.Email); err != nil {
			return err
		}
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return err
		}
		u.Password = hash
	}
	setString(&u.FirstName, req.FirstName)
	setString(&u.LastName, req.LastName)
	setOptional(&u.PhoneNumber, req.PhoneNumber)
	setOptional(&u.City, req.City)
	setOptional(&u.State, req.State)
	setOptional(&u.ZipCode, req.ZipCode)
	setOptional(&u.Country, req.Country)
	setOptional(&u.Company, req.Company)
	setOptional(&u.JobTitle, req.JobTitle)
	setOptional(&u.CompanyType, req.CompanyType)

	if p := req.Preferences; p != nil {
		if u.Preferences == nil {
			u.Preferences = &model.UserPreferences{UserID: u.ID}
		}
		if p.ValueDisplayMode != nil {
			u.Preferences.ValueDisplayMode = *p.ValueDisplayMode
		}
		setBool(&u.Preferences.SimulationToolbarStrategyAdded, p.SimulationToolbarStrategyAdded)
		setBool(&u.Preferences.SimulationToolbarMarginAdded, p.SimulationToolbarMarginAdded)
		setBool(&u.Preferences.SimulationToolbarHedgeIRRAdded, p.SimulationToolbarHedgeIRRAdded)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setOptional(dst **string, v *string) {
	if v != nil {
		s := *v
		*dst = &s
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
