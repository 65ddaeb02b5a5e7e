package repository

import (
	"context"
	"errors"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func preloadPairCurrencies(db *gorm.DB) *gorm.DB {
	return db.Preload("BaseCurrency").Preload("ForeignCurrency")
}

func (s *Store) ListFwdEfficiencies(ctx context.Context, userID uuid.UUID) ([]model.FwdEfficiency, error) {
	var out []model.FwdEfficiency
	err := s.conn(ctx).Scopes(preloadPairCurrencies, NotDeleted, OwnedBy(userID)).
		Order("date_updated DESC, date_added DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) FwdEfficiency(ctx context.Context, userID, id uuid.UUID) (*model.FwdEfficiency, error) {
	var fe model.FwdEfficiency
	err := s.conn(ctx).Scopes(preloadPairCurrencies, NotDeleted, OwnedBy(userID)).First(&fe, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &fe, nil
}

func (s *Store) DefaultFwdEfficiency(ctx context.Context, userID uuid.UUID) (*model.FwdEfficiency, error) {
	var fe model.FwdEfficiency
	err := s.conn(ctx).Scopes(preloadPairCurrencies, NotDeleted, OwnedBy(userID)).
		Where("is_default = ?", true).
		First(&fe).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &fe, nil
}

func (s *Store) SaveFwdEfficiency(ctx context.Context, fe *model.FwdEfficiency) error {
	return s.conn(ctx).Omit("BaseCurrency", "ForeignCurrency").Save(fe).Error
}

func (s *Store) SoftDeleteFwdEfficiency(ctx context.Context, userID, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.FwdEfficiency{}, "id = ? AND user_id = ? AND is_deleted = ?", id, userID, false)
}

func (s *Store) ListSpotHistories(ctx context.Context, userID uuid.UUID) ([]model.SpotHistory, error) {
	var out []model.SpotHistory
	err := s.conn(ctx).Scopes(preloadPairCurrencies, NotDeleted, OwnedBy(userID)).
		Order("date_updated DESC, date_added DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) SpotHistory(ctx context.Context, userID, id uuid.UUID) (*model.SpotHistory, error) {
	var sh model.SpotHistory
	err := s.conn(ctx).Scopes(preloadPairCurrencies, NotDeleted, OwnedBy(userID)).First(&sh, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sh, nil
}

func (s *Store) DefaultSpotHistory(ctx context.Context, userID uuid.UUID) (*model.SpotHistory, error) {
	var sh model.SpotHistory
	err := s.conn(ctx).Scopes(preloadPairCurrencies, NotDeleted, OwnedBy(userID)).
		Where("is_default = ?", true).
		First(&sh).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sh, nil
}

func (s *Store) SaveSpotHistory(ctx context.Context, sh *model.SpotHistory) error {
	return s.conn(ctx).Omit("BaseCurrency", "ForeignCurrency").Save(sh).Error
}

func (s *Store) SoftDeleteSpotHistory(ctx context.Context, userID, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.SpotHistory{}, "id = ? AND user_id = ? AND is_deleted = ?", id, userID, false)
}

func preloadFxMovement(db *gorm.DB) *gorm.DB {
	return db.Preload("CurrencyPairs").
		Preload("CurrencyPairs.BaseCurrency").
		Preload("CurrencyPairs.ForeignCurrency")
}

func (s *Store) ListFxMovements(ctx context.Context, userID uuid.UUID) ([]model.FxMovement, error) {
	var out []model.FxMovement
	err := s.conn(ctx).Scopes(preloadFxMovement, NotDeleted, OwnedBy(userID)).
		Order("date_updated DESC, date_added DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) FxMovement(ctx context.Context, userID, id uuid.UUID) (*model.FxMovement, error) {
	var fm model.FxMovement
	err := s.conn(ctx).Scopes(preloadFxMovement, NotDeleted, OwnedBy(userID)).First(&fm, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &fm, nil
}

func (s *Store) DefaultFxMovement(ctx context.Context, userID uuid.UUID) (*model.FxMovement, error) {
	var fm model.FxMovement
	err := s.conn(ctx).Scopes(preloadFxMovement, NotDeleted, OwnedBy(userID)).
		Where("is_default = ?", true).
		First(&fm).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &fm, nil
}

// SaveFxMovement stores the movement and, when pairs is non-nil, replaces its
// currency pairs.
func (s *Store) SaveFxMovement(ctx context.Context, fm *model.FxMovement, pairs []model.FxCurrencyPair) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("CurrencyPairs").Save(fm).Error; err != nil {
			return err
		}
		if pairs == nil {
			return nil
		}
		if err := tx.Model(fm).Omit("CurrencyPairs.*").Association("CurrencyPairs").Replace(pairs); err != nil {
			return err
		}
		fm.CurrencyPairs = pairs
		return nil
	})
}

func (s *Store) SoftDeleteFxMovement(ctx context.Context, userID, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.FxMovement{}, "id = ? AND user_id = ? AND is_deleted = ?", id, userID, false)
}

// CurrencyPair finds or creates the pair for two currencies.
func (s *Store) CurrencyPair(ctx context.Context, base, foreign *model.TypeCurrency) (*model.FxCurrencyPair, error) {
	var pair model.FxCurrencyPair
	err := s.conn(ctx).
		Where("base_currency_id = ? AND foreign_currency_id = ?", base.ID, foreign.ID).
		First(&pair).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		pair = model.FxCurrencyPair{BaseCurrencyID: base.ID, ForeignCurrencyID: foreign.ID}
		if err := s.conn(ctx).Omit("BaseCurrency", "ForeignCurrency").Create(&pair).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	pair.BaseCurrency = base
	pair.ForeignCurrency = foreign
	return &pair, nil
}
