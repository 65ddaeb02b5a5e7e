package repository

import (
	"context"
	"fmt"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SimulationKind names the three simulation tables.
type SimulationKind string

const (
	KindStrategy SimulationKind = "STRATEGY"
	KindMargin   SimulationKind = "MARGIN"
	KindHedge    SimulationKind = "HEDGE"
)

func (k SimulationKind) model() (any, error) {
	switch k {
	case KindStrategy:
		return &model.StrategySimulation{}, nil
	case KindMargin:
		return &model.MarginSimulation{}, nil
	case KindHedge:
		return &model.HedgeSimulation{}, nil
	}
	return nil, fmt.Errorf("unknown simulation kind %q", k)
}

func (s *Store) CreateEnvironment(ctx context.Context, env *model.SimulationEnvironment) error {
	return s.conn(ctx).Create(env).Error
}

func (s *Store) SaveEnvironment(ctx context.Context, env *model.SimulationEnvironment) error {
	return s.conn(ctx).Save(env).Error
}

func preloadStrategySimulation(db *gorm.DB) *gorm.DB {
	return db.Preload("SimulationEnvironment").
		Preload("TypeStatus").
		Preload("Instances", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_deleted = ?", false).Order("instance_group, date_added")
		}).
		Preload("Instances.StrategyLeg").
		Preload("Instances.StrategyLeg.Strategy")
}

func (s *Store) ListStrategySimulations(ctx context.Context, analysisID uuid.UUID) ([]model.StrategySimulation, error) {
	var out []model.StrategySimulation
	err := s.conn(ctx).Scopes(preloadStrategySimulation, NotDeleted).
		Where("analysis_id = ?", analysisID).
		Order("pin DESC, date_updated DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) StrategySimulation(ctx context.Context, analysisID, id uuid.UUID) (*model.StrategySimulation, error) {
	var sim model.StrategySimulation
	err := s.conn(ctx).Scopes(preloadStrategySimulation, NotDeleted).
		Where("analysis_id = ?", analysisID).
		First(&sim, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sim, nil
}

// StrategySimulationAny also returns deleted simulations; margin simulations
// keep pointing at theirs after it is removed.
func (s *Store) StrategySimulationAny(ctx context.Context, id uuid.UUID) (*model.StrategySimulation, error) {
	var sim model.StrategySimulation
	if err := s.conn(ctx).Preload("TypeStatus").First(&sim, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sim, nil
}

func (s *Store) CreateStrategySimulation(ctx context.Context, sim *model.StrategySimulation) error {
	return s.conn(ctx).Omit("Analysis", "SimulationEnvironment", "TypeStatus", "Instances").Create(sim).Error
}

// SaveStrategySimulation persists every column and issues a new result id.
func (s *Store) SaveStrategySimulation(ctx context.Context, sim *model.StrategySimulation) error {
	return s.conn(ctx).Omit("Analysis", "SimulationEnvironment", "TypeStatus", "Instances").Save(sim).Error
}

func (s *Store) CreateStrategyInstances(ctx context.Context, instances []model.StrategyInstance) error {
	if len(instances) == 0 {
		return nil
	}
	return s.conn(ctx).Omit("StrategyLeg").Create(&instances).Error
}

func (s *Store) RetireStrategyInstances(ctx context.Context, simID uuid.UUID) error {
	return s.conn(ctx).Model(&model.StrategyInstance{}).
		Where("strategy_simulation_id = ?", simID).
		UpdateColumn("is_deleted", true).Error
}

func (s *Store) SoftDeleteStrategySimulation(ctx context.Context, analysisID, id uuid.UUID) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := softDelete(ctx, tx, &model.StrategySimulation{}, "id = ? AND analysis_id = ? AND is_deleted = ?", id, analysisID, false); err != nil {
			return err
		}
		return tx.Model(&model.StrategyInstance{}).
			Where("strategy_simulation_id = ?", id).
			UpdateColumn("is_deleted", true).Error
	})
}

func preloadMarginSimulation(db *gorm.DB) *gorm.DB {
	return db.Preload("TypeStatus").
		Preload("StrategySimulation").
		Preload("StrategySimulation.TypeStatus")
}

func (s *Store) ListMarginSimulations(ctx context.Context, analysisID uuid.UUID) ([]model.MarginSimulation, error) {
	var out []model.MarginSimulation
	err := s.conn(ctx).Scopes(preloadMarginSimulation, NotDeleted).
		Where("analysis_id = ?", analysisID).
		Order("pin DESC, date_updated DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) MarginSimulation(ctx context.Context, analysisID, id uuid.UUID) (*model.MarginSimulation, error) {
	var sim model.MarginSimulation
	err := s.conn(ctx).Scopes(preloadMarginSimulation, NotDeleted).
		Where("analysis_id = ?", analysisID).
		First(&sim, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sim, nil
}

func (s *Store) CreateMarginSimulation(ctx context.Context, sim *model.MarginSimulation) error {
	return s.conn(ctx).Omit("StrategySimulation", "TypeStatus").Create(sim).Error
}

func (s *Store) SaveMarginSimulation(ctx context.Context, sim *model.MarginSimulation) error {
	return s.conn(ctx).Omit("StrategySimulation", "TypeStatus").Save(sim).Error
}

func (s *Store) SoftDeleteMarginSimulation(ctx context.Context, analysisID, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.MarginSimulation{}, "id = ? AND analysis_id = ? AND is_deleted = ?", id, analysisID, false)
}

func preloadHedgeSimulation(db *gorm.DB) *gorm.DB {
	return db.Preload("SimulationEnvironment").Preload("TypeStatus")
}

func (s *Store) ListHedgeSimulations(ctx context.Context, analysisID uuid.UUID) ([]model.HedgeSimulation, error) {
	var out []model.HedgeSimulation
	err := s.conn(ctx).Scopes(preloadHedgeSimulation, NotDeleted).
		Where("analysis_id = ?", analysisID).
		Order("pin DESC, date_updated DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) HedgeSimulation(ctx context.Context, analysisID, id uuid.UUID) (*model.HedgeSimulation, error) {
	var sim model.HedgeSimulation
	err := s.conn(ctx).Scopes(preloadHedgeSimulation, NotDeleted).
		Where("analysis_id = ?", analysisID).
		First(&sim, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sim, nil
}

func (s *Store) CreateHedgeSimulation(ctx context.Context, sim *model.HedgeSimulation) error {
	return s.conn(ctx).Omit("Analysis", "SimulationEnvironment", "TypeStatus").Create(sim).Error
}

func (s *Store) SaveHedgeSimulation(ctx context.Context, sim *model.HedgeSimulation) error {
	return s.conn(ctx).Omit("Analysis", "SimulationEnvironment", "TypeStatus").Save(sim).Error
}

func (s *Store) SoftDeleteHedgeSimulation(ctx context.Context, analysisID, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.HedgeSimulation{}, "id = ? AND analysis_id = ? AND is_deleted = ?", id, analysisID, false)
}

// TogglePin flips the pin flag in place. The column update skips the save
// hooks, so the result id is left alone.
func (s *Store) TogglePin(ctx context.Context, kind SimulationKind, analysisID, id uuid.UUID) error {
	m, err := kind.model()
	if err != nil {
		return ErrNotFound
	}
	res := s.conn(ctx).Model(m).
		Where("id = ? AND analysis_id = ? AND is_deleted = ?", id, analysisID, false).
		UpdateColumn("pin", gorm.Expr("NOT pin"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSimulationStatus records progress reported by the core service.
func (s *Store) SetSimulationStatus(ctx context.Context, kind SimulationKind, id uuid.UUID, status string) error {
	m, err := kind.model()
	if err != nil {
		return err
	}
	res := s.conn(ctx).Model(m).Where("id = ?", id).UpdateColumn("simulation_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SimulationAnalysisID resolves which analysis a live simulation belongs to.
func (s *Store) SimulationAnalysisID(ctx context.Context, kind SimulationKind, id uuid.UUID) (uuid.UUID, error) {
	m, err := kind.model()
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	var ids []uuid.UUID
	err = s.conn(ctx).Model(m).
		Where("id = ? AND is_deleted = ?", id, false).
		Limit(1).
		Pluck("analysis_id", &ids).Error
	if err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, ErrNotFound
	}
	return ids[0], nil
}

// UpdateHedgeLabels stores name and pin only. Neither affects the computed
// result, so the hooks (and the result id) are skipped.
func (s *Store) UpdateHedgeLabels(ctx context.Context, h *model.HedgeSimulation) error {
	return s.conn(ctx).Model(&model.HedgeSimulation{}).
		Where("id = ?", h.ID).
		UpdateColumns(map[string]any{"name": h.Name, "pin": h.Pin}).Error
}
