package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func preloadUser(db *gorm.DB) *gorm.DB {
	return db.Preload("TypeUserRole").
		Preload("Organization").
		Preload("Preferences").
		Preload("SSO")
}

// CreateUser stores the user together with default preferences.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		prefs := u.Preferences
		u.Preferences = nil
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if prefs == nil {
			prefs = &model.UserPreferences{}
		}
		prefs.UserID = u.ID
		if err := tx.Create(prefs).Error; err != nil {
			return err
		}
		u.Preferences = prefs
		return tx.Preload("TypeUserRole").Preload("Organization").First(u, "id = ?", u.ID).Error
	})
}

// UserByID returns an active, non-deleted user.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := s.conn(ctx).Scopes(preloadUser).
		Where("is_deleted = ?", false).
		First(&u, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UserByIDAny includes soft-deleted users, for administration.
func (s *Store) UserByIDAny(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := s.conn(ctx).Scopes(preloadUser).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.conn(ctx).Scopes(preloadUser).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *Store) EmailTaken(ctx context.Context, email string, except uuid.UUID) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&model.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(email)), except).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	return s.conn(ctx).Omit(clause.Associations).Save(u).Error
}

func (s *Store) SavePreferences(ctx context.Context, p *model.UserPreferences) error {
	return s.conn(ctx).Save(p).Error
}

func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.conn(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error
}

func (s *Store) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.User{}, "id = ?", id)
}

func (s *Store) ListUsers(ctx context.Context, page Page) ([]model.User, int64, error) {
	var (
		out   []model.User
		total int64
	)
	q := s.conn(ctx).Model(&model.User{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := s.conn(ctx).Scopes(preloadUser, Paginate(page)).Order("date_added DESC").Find(&out).Error
	return out, total, err
}

// ReplaceOTP makes code the only outstanding OTP for the user.
func (s *Store) ReplaceOTP(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.OTP{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.OTP{UserID: userID, Code: code, ExpiresAt: expiresAt}).Error
	})
}

func (s *Store) OTPForUser(ctx context.Context, userID uuid.UUID) (*model.OTP, error) {
	var otp model.OTP
	if err := s.conn(ctx).First(&otp, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &otp, nil
}

func (s *Store) DeleteOTP(ctx context.Context, userID uuid.UUID) error {
	return s.conn(ctx).Where("user_id = ?", userID).Delete(&model.OTP{}).Error
}

func (s *Store) UserByLinkedinID(ctx context.Context, linkedinID string) (*model.User, error) {
	var sso model.SSO
	err := s.conn(ctx).Scopes(NotDeleted).First(&sso, "linkedin_id = ?", linkedinID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return s.UserByID(ctx, sso.UserID)
}

// SetLinkedinID links (or with nil, unlinks) a LinkedIn identity.
func (s *Store) SetLinkedinID(ctx context.Context, userID uuid.UUID, linkedinID *string) error {
	var sso model.SSO
	err := s.conn(ctx).First(&sso, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	sso.UserID = userID
	sso.LinkedinID = linkedinID
	return s.conn(ctx).Save(&sso).Error
}

func softDelete(ctx context.Context, db *gorm.DB, m any, query string, args ...any) error {
	res := db.WithContext(ctx).Model(m).Where(query, args...).UpdateColumn("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
