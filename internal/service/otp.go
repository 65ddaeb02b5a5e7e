package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"html/template"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/cloud"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
)

const (
	otpTTL     = 5 * time.Minute
	otpSubject = "Your OTP for Two-Factor Authentication"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #1d2939;">
    <p>Hi {{.Name}},</p>
    <p>Use the following one-time password to continue:</p>
    <h2 style="letter-spacing: 4px;">{{.Code}}</h2>
    <p>The code expires in 5 minutes. If you did not request it, you can ignore this e-mail.</p>
    <p>The Deaglo team</p>
  </body>
</html>`))

// Mailer delivers rendered e-mails; cloud.Mailer in production.
type Mailer interface {
	Send(ctx context.Context, e cloud.Email) bool
}

type OTPService struct {
	store  *repository.Store
	mailer Mailer
	now    func() time.Time
}

func NewOTPService(store *repository.Store, mailer Mailer) *OTPService {
	return &OTPService{store: store, mailer: mailer, now: time.Now}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Send replaces the user's outstanding code and mails the new one. The bool
// reports whether the e-mail went out.
func (s *OTPService) Send(ctx context.Context, u *model.User) (bool, error) {
	code, err := generateCode()
	if err != nil {
		return false, err
	}
	if err := s.store.ReplaceOTP(ctx, u.ID, code, s.now().Add(otpTTL)); err != nil {
		return false, err
	}

	var body bytes.Buffer
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if err := otpTemplate.Execute(&body, map[string]string{"Name": name, "Code": code}); err != nil {
		return false, err
	}
	return s.mailer.Send(ctx, cloud.Email{
		To:       u.Email,
		Subject:  otpSubject,
		Body:     body.String(),
		HTML:     true,
		Template: "otp",
	}), nil
}

// Verify marks the user verified and consumes the code.
func (s *OTPService) Verify(ctx context.Context, u *model.User, code string) error {
	otp, err := s.store.OTPForUser(ctx, u.ID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && otp.Code != strings.TrimSpace(code)) {
		return apperrors.Generic("Invalid OTP", nil, http.StatusNotFound)
	}
	if err != nil {
		return err
	}
	if otp.Expired(s.now()) {
		return apperrors.Generic("OTP expired", nil, http.StatusBadRequest)
	}
	u.IsVerified = true
	if err := s.store.SaveUser(ctx, u); err != nil {
		return err
	}
	return s.store.DeleteOTP(ctx, u.ID)
}

// Check reports whether code is the user's live code. An expired code is
// discarded.
func (s *OTPService) Check(ctx context.Context, u *model.User, code string) (bool, error) {
	otp, err := s.store.OTPForUser(ctx, u.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if otp.Code != strings.TrimSpace(code) {
		return false, nil
	}
	if otp.Expired(s.now()) {
		return false, s.store.DeleteOTP(ctx, u.ID)
	}
	return true, nil
}
