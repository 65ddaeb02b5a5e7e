package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
)

const (
	MsgInvalidCredentials = "You have entered an invalid username or password"
	MsgUnknownAccount     = "An email will be sent if the account is active and valid."
	MsgInvalidResetOTP    = "Incorrect or invalid OTP"
)

// LinkedInAuth is the OAuth surface of LinkedInClient.
type LinkedInAuth interface {
	AuthorizationURL(urlType string, state int) string
	Profile(ctx context.Context, code, uriType string) (*LinkedInProfile, error)
}

type SignInRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// SignInResult is a token pair plus the verification flag clients use to
// route unverified users to the OTP screen.
type SignInResult struct {
	TokenPair
	Verified bool `json:"verified"`
}

type ChangePasswordRequest struct {
	OldPassword     *string `json:"oldPassword"`
	NewPassword     *string `json:"newPassword"`
	ConfirmPassword *string `json:"confirmPassword"`
}

type ForgotPasswordRequest struct {
	Email       *string `json:"email"`
	Code        *string `json:"code"`
	NewPassword *string `json:"newPassword"`
}

type LinkRequest struct {
	Link *bool   `json:"link"`
	OTP  *string `json:"otp"`
	Code *string `json:"code"`
}

type AuthService struct {
	store    *repository.Store
	tokens   *TokenIssuer
	otp      *OTPService
	market   *MarketService
	linkedin LinkedInAuth
	now      func() time.Time
}

func NewAuthService(store *repository.Store, tokens *TokenIssuer, otp *OTPService, market *MarketService, linkedin LinkedInAuth) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		otp:      otp,
		market:   market,
		linkedin: linkedin,
		now:      time.Now,
	}
}

func required(key string, v *string) (string, error) {
	if v == nil {
		return "", apperrors.NewKeyMissing(key)
	}
	return *v, nil
}

func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	email, err := required("email", req.Email)
	if err != nil {
		return nil, err
	}
	password, err := required("password", req.Password)
	if err != nil {
		return nil, err
	}

	invalid := apperrors.Generic(MsgInvalidCredentials, nil, http.StatusUnauthorized)
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if u.IsDeleted || !u.IsActive || !CheckPassword(u.Password, password) {
		return nil, invalid
	}
	return s.signIn(ctx, u)
}

func (s *AuthService) signIn(ctx context.Context, u *model.User) (*SignInResult, error) {
	pair, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLastLogin(ctx, u.ID, s.now()); err != nil {
		logger.Warn("failed to record last login", "user_id", u.ID, "error", err)
	}
	return &SignInResult{TokenPair: pair, Verified: u.IsVerified}, nil
}

// SignUp creates the account with its default market tools and mails the
// first OTP. A failed e-mail does not fail the sign up.
func (s *AuthService) SignUp(ctx context.Context, req UserRequest) (TokenPair, error) {
	u, err := s.createUser(ctx, req, nil)
	if err != nil {
		return TokenPair{}, err
	}
	pair, err := s.tokens.Issue(u)
	if err != nil {
		return TokenPair{}, err
	}
	if _, err := s.otp.Send(ctx, u); err != nil {
		logger.LogError(ctx, err, "failed to send sign up otp", "user_id", u.ID)
	}
	return pair, nil
}

// createUser validates and stores a new user and its market tools in one
// transaction. mutate runs before the insert.
func (s *AuthService) createUser(ctx context.Context, req UserRequest, mutate func(*model.User)) (*model.User, error) {
	missing := map[string]string{}
	if req.Email == nil || strings.TrimSpace(*req.Email) == "" {
		missing["email"] = "This field is required."
	}
	if req.Password == nil {
		missing["password"] = "This field is required."
	}
	if len(missing) > 0 {
		return nil, apperrors.NewFieldErrors(missing)
	}

	u := &model.User{IsActive: true}
	if err := applyUserRequest(ctx, s.store, u, req); err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(u)
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		return s.market.InitUser(ctx, tx, u.ID)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Refresh rotates the pair: a valid refresh token buys a new access and
// refresh token.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (TokenPair, error) {
	unauthorized := apperrors.NewUnauthorized(MsgInvalidToken)
	claims, err := s.tokens.Parse(refresh, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, unauthorized
	}
	u, err := s.store.UserByID(ctx, uuid.MustParse(claims.UserID))
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, unauthorized
	}
	if err != nil {
		return TokenPair{}, err
	}
	return s.tokens.Issue(u)
}

// Authenticate resolves an access token to its live user.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	claims, err := s.tokens.Parse(raw, TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.store.UserByID(ctx, uuid.MustParse(claims.UserID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInvalidToken
	}
	return u, nil
}

func (s *AuthService) GetOTP(ctx context.Context, u *model.User) error {
	sent, err := s.otp.Send(ctx, u)
	if err != nil {
		return err
	}
	if !sent {
		return apperrors.Generic("Service unavailable", nil, http.StatusServiceUnavailable)
	}
	return nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, u *model.User, code *string) error {
	c, err := required("otpCode", code)
	if err != nil {
		return err
	}
	return s.otp.Verify(ctx, u, c)
}

func (s *AuthService) ChangePassword(ctx context.Context, u *model.User, req ChangePasswordRequest) error {
	oldPassword, err := required("oldPassword", req.OldPassword)
	if err != nil {
		return err
	}
	newPassword, err := required("newPassword", req.NewPassword)
	if err != nil {
		return err
	}
	confirm, err := required("confirmPassword", req.ConfirmPassword)
	if err != nil {
		return err
	}

	if !CheckPassword(u.Password, oldPassword) {
		return apperrors.NewInvalidRequest("Incorrect old password")
	}
	if err := ValidatePassword(newPassword, u.Email); err != nil {
		return err
	}
	if newPassword != confirm {
		return apperrors.NewInvalidRequest("New password and confirm password do not match")
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	return s.store.SaveUser(ctx, u)
}

// ForgotPassword mails a code when none is given (sent=true) and otherwise
// resets the password with it.
func (s *AuthService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (sent bool, err error) {
	email, err := required("email", req.Email)
	if err != nil {
		return false, err
	}
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, apperrors.Generic(MsgUnknownAccount, nil, http.StatusNotFound)
	}
	if err != nil {
		return false, err
	}

	if req.Code == nil || *req.Code == "" {
		if _, err := s.otp.Send(ctx, u); err != nil {
			return false, err
		}
		return true, nil
	}

	ok, err := s.otp.Check(ctx, u, *req.Code)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, apperrors.NewInvalidRequest(MsgInvalidResetOTP)
	}
	newPassword := ""
	if req.NewPassword != nil {
		newPassword = *req.NewPassword
	}
	if err := ValidatePassword(newPassword, u.Email); err != nil {
		return false, err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return false, err
	}
	u.Password = hash
	if err := s.store.SaveUser(ctx, u); err != nil {
		return false, err
	}
	return false, s.store.DeleteOTP(ctx, u.ID)
}

// LinkedInURL builds the authorization URL with a random state.
func (s *AuthService) LinkedInURL(urlType string) string {
	return s.linkedin.AuthorizationURL(urlType, rand.IntN(100))
}

// LinkedInSignIn signs in the member behind code. An unknown, verified
// LinkedIn e-mail gets a new account linked to the profile.
func (s *AuthService) LinkedInSignIn(ctx context.Context, code *string) (*SignInResult, error) {
	c, err := required("code", code)
	if err != nil {
		return nil, err
	}
	profile, err := s.linkedin.Profile(ctx, c, URITypeAuth)
	if err != nil {
		return nil, err
	}

	_, err = s.store.UserByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if profile.EmailVerified && profile.Email != "" {
			if err := s.createLinkedInUser(ctx, profile); err != nil {
				return nil, err
			}
		}
	case err != nil:
		return nil, err
	}

	u, err := s.store.UserByLinkedinID(ctx, profile.Sub)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, u)
}

func (s *AuthService) createLinkedInUser(ctx context.Context, p *LinkedInProfile) error {
	u := &model.User{
		Email:     strings.ToLower(p.Email),
		FirstName: p.GivenName,
		LastName:  p.FamilyName,
		IsActive:  true,
	}
	sub := p.Sub
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		if err := tx.SetLinkedinID(ctx, u.ID, &sub); err != nil {
			return err
		}
		return s.market.InitUser(ctx, tx, u.ID)
	})
}

// Link links (link=true, with a fresh code) or delinks the caller's LinkedIn
// account. Either way the caller must present a live OTP.
func (s *AuthService) Link(ctx context.Context, u *model.User, req LinkRequest) (string, error) {
	if req.Link == nil {
		return "", apperrors.NewKeyMissing("link")
	}
	otp, err := required("otp", req.OTP)
	if err != nil {
		return "", err
	}
	ok, err := s.otp.Check(ctx, u, otp)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.Generic("OTP expired",
			map[string]string{"message": "OTP expired. Please login again and generate a new one"}, http.StatusBadRequest)
	}
	if err := s.store.DeleteOTP(ctx, u.ID); err != nil {
		return "", err
	}

	if !*req.Link {
		if err := s.store.SetLinkedinID(ctx, u.ID, nil); err != nil {
			return "", err
		}
		return "Linkedin account delinked successfully", nil
	}

	code, err := required("code", req.Code)
	if err != nil {
		return "", err
	}
	profile, err := s.linkedin.Profile(ctx, code, URITypeLink)
	if err != nil {
		return "", err
	}
	if !profile.EmailVerified {
		return "", apperrors.Generic("Email is not verified in LinkedIn",
			map[string]string{"message": "Unverified LinkedIn Email can't use"}, http.StatusBadRequest)
	}
	sub := profile.Sub
	if err := s.store.SetLinkedinID(ctx, u.ID, &sub); err != nil {
		return "", err
	}
	return "Linkedin account linked successfully", nil
}
