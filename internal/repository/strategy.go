package repository

import (
	"context"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func preloadLegs(db *gorm.DB) *gorm.DB {
	return db.Preload("Legs", func(db *gorm.DB) *gorm.DB {
		return db.Where("is_deleted = ?", false).Order("sort_order, date_added")
	})
}

// ListStrategies returns the user's custom strategies followed by the defaults.
func (s *Store) ListStrategies(ctx context.Context, userID uuid.UUID) ([]model.Strategy, error) {
	var custom, defaults []model.Strategy
	if err := s.conn(ctx).Scopes(preloadLegs, NotDeleted).
		Where("created_by_user_id = ?", userID).
		Order("date_added").
		Find(&custom).Error; err != nil {
		return nil, err
	}
	if err := s.conn(ctx).Scopes(preloadLegs, NotDeleted).
		Where("created_by_user_id IS NULL").
		Order("sort_order, name").
		Find(&defaults).Error; err != nil {
		return nil, err
	}
	return append(custom, defaults...), nil
}

// VisibleStrategy finds a default strategy or one of the user's own.
func (s *Store) VisibleStrategy(ctx context.Context, userID, id uuid.UUID) (*model.Strategy, error) {
	var st model.Strategy
	err := s.conn(ctx).Scopes(preloadLegs, NotDeleted).
		Where("created_by_user_id IS NULL OR created_by_user_id = ?", userID).
		First(&st, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (s *Store) CustomStrategy(ctx context.Context, userID, id uuid.UUID) (*model.Strategy, error) {
	var st model.Strategy
	err := s.conn(ctx).Scopes(preloadLegs, NotDeleted).
		Where("created_by_user_id = ?", userID).
		First(&st, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}

func (s *Store) StrategyLeg(ctx context.Context, strategyID, legID uuid.UUID) (*model.StrategyLeg, error) {
	var leg model.StrategyLeg
	err := s.conn(ctx).Scopes(NotDeleted).
		Preload("Strategy").
		Where("strategy_id = ?", strategyID).
		First(&leg, "id = ?", legID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &leg, nil
}

// CreateStrategy persists the strategy and its legs.
func (s *Store) CreateStrategy(ctx context.Context, st *model.Strategy) error {
	return s.conn(ctx).Create(st).Error
}

// ReplaceStrategyLegs saves the strategy fields, retires the current legs and
// stores the given ones in their place.
func (s *Store) ReplaceStrategyLegs(ctx context.Context, st *model.Strategy, legs []model.StrategyLeg) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Legs").Save(st).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.StrategyLeg{}).
			Where("strategy_id = ? AND is_deleted = ?", st.ID, false).
			UpdateColumn("is_deleted", true).Error; err != nil {
			return err
		}
		for i := range legs {
			legs[i].StrategyID = st.ID
		}
		if len(legs) > 0 {
			if err := tx.Create(&legs).Error; err != nil {
				return err
			}
		}
		st.Legs = legs
		return nil
	})
}

func (s *Store) SoftDeleteStrategy(ctx context.Context, id uuid.UUID) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := softDelete(ctx, tx, &model.Strategy{}, "id = ?", id); err != nil {
			return err
		}
		return tx.Model(&model.StrategyLeg{}).Where("strategy_id = ?", id).UpdateColumn("is_deleted", true).Error
	})
}
