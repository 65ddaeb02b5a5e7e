package service

import (
	"context"
	"errors"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
)

type OrganizationRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=100"`
	IsDeleted *bool   `json:"isDeleted"`
}

// AdminUserRequest references role and organization by name.
type AdminUserRequest struct {
	FirstName    *string `json:"firstName" binding:"omitempty,max=100"`
	LastName     *string `json:"lastName" binding:"omitempty,max=100"`
	Email        *string `json:"email" binding:"omitempty,email,max=254"`
	Password     *string `json:"password"`
	UserRole     *string `json:"userRole"`
	Organization *string `json:"organization"`
	City         *string `json:"city" binding:"omitempty,max=100"`
	Country      *string `json:"country" binding:"omitempty,max=100"`
	IsActive     *bool   `json:"isActive"`
	IsVerified   *bool   `json:"isVerified"`
	IsDeleted    *bool   `json:"isDeleted"`
	SSO          *string `json:"sso"`
}

// AdminService backs the staff-only endpoints. Staff see soft-deleted rows.
type AdminService struct {
	store *repository.Store
	auth  *AuthService
	otp   *OTPService
}

func NewAdminService(store *repository.Store, auth *AuthService, otp *OTPService) *AdminService {
	return &AdminService{store: store, auth: auth, otp: otp}
}

func (s *AdminService) ListOrganizations(ctx context.Context, page repository.Page) ([]model.Organization, int64, error) {
	return s.store.ListOrganizations(ctx, page)
}

func (s *AdminService) GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	org, err := s.store.OrganizationByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return org, err
}

func (s *AdminService) CreateOrganization(ctx context.Context, req OrganizationRequest) (*model.Organization, error) {
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, apperrors.NewFieldError("name", "This field is required.")
	}
	org := &model.Organization{Name: strings.TrimSpace(*req.Name)}
	if req.IsDeleted != nil {
		org.IsDeleted = *req.IsDeleted
	}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *AdminService) UpdateOrganization(ctx context.Context, id uuid.UUID, req OrganizationRequest, partial bool) (*model.Organization, error) {
	org, err := s.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	if !partial && req.Name == nil {
		return nil, apperrors.NewFieldError("name", "This field is required.")
	}
	if req.Name != nil {
		org.Name = strings.TrimSpace(*req.Name)
	}
	if req.IsDeleted != nil {
		org.IsDeleted = *req.IsDeleted
	}
	if err := s.store.SaveOrganization(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *AdminService) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	err := s.store.SoftDeleteOrganization(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("")
	}
	return err
}

func (s *AdminService) ListUsers(ctx context.Context, page repository.Page) ([]model.User, int64, error) {
	return s.store.ListUsers(ctx, page)
}

func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.store.UserByIDAny(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return u, err
}

// CreateUser provisions an account like sign up does, then mails an OTP.
func (s *AdminService) CreateUser(ctx context.Context, req AdminUserRequest) (*model.User, error) {
	if req.UserRole == nil {
		return nil, apperrors.NewFieldError("userRole", "This field is required.")
	}
	role, org, err := s.lookups(ctx, req)
	if err != nil {
		return nil, err
	}
	u, err := s.auth.createUser(ctx, UserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		City:      req.City,
		Country:   req.Country,
	}, func(u *model.User) {
		applyAdminFlags(u, req, role, org)
	})
	if err != nil {
		return nil, err
	}
	if req.SSO != nil {
		if err := s.store.SetLinkedinID(ctx, u.ID, req.SSO); err != nil {
			return nil, err
		}
	}
	if _, err := s.otp.Send(ctx, u); err != nil {
		logger.LogError(ctx, err, "failed to send otp to provisioned user", "user_id", u.ID)
	}
	return s.GetUser(ctx, u.ID)
}

// UpdateUser never changes the password.
func (s *AdminService) UpdateUser(ctx context.Context, id uuid.UUID, req AdminUserRequest, partial bool) (*model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !partial {
		missing := map[string]string{}
		if req.Email == nil {
			missing["email"] = "This field is required."
		}
		if req.UserRole == nil {
			missing["userRole"] = "This field is required."
		}
		if len(missing) > 0 {
			return nil, apperrors.NewFieldErrors(missing)
		}
	}
	role, org, err := s.lookups(ctx, req)
	if err != nil {
		return nil, err
	}
	err = applyUserRequest(ctx, s.store, u, UserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		City:      req.City,
		Country:   req.Country,
	})
	if err != nil {
		return nil, err
	}
	applyAdminFlags(u, req, role, org)

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		if req.SSO != nil {
			return tx.SetLinkedinID(ctx, u.ID, req.SSO)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, u.ID)
}

func (s *AdminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.store.SoftDeleteUser(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("")
	}
	return err
}

func (s *AdminService) lookups(ctx context.Context, req AdminUserRequest) (*model.TypeUserRole, *model.Organization, error) {
	var (
		role *model.TypeUserRole
		org  *model.Organization
		err  error
	)
	if req.UserRole != nil {
		role, err = s.store.UserRoleByName(ctx, *req.UserRole)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewFieldError("userRole", "Object with name="+*req.UserRole+" does not exist.")
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if req.Organization != nil && *req.Organization != "" {
		org, err = s.store.OrganizationByName(ctx, *req.Organization)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewFieldError("organization", "Object with name="+*req.Organization+" does not exist.")
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return role, org, nil
}

func applyAdminFlags(u *model.User, req AdminUserRequest, role *model.TypeUserRole, org *model.Organization) {
	if role != nil {
		u.TypeUserRoleID = role.ID
	}
	// associations are reloaded after the save
	u.TypeUserRole, u.Organization = nil, nil
	if req.Organization != nil {
		u.OrganizationID = nil
		if org != nil {
			u.OrganizationID = &org.ID
		}
	}
	setBool(&u.IsActive, req.IsActive)
	setBool(&u.IsVerified, req.IsVerified)
	setBool(&u.IsDeleted, req.IsDeleted)
}
