package repository

import (
	"context"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisFilter struct {
	BaseCurrencies    []string
	ForeignCurrencies []string
	Categories        []string
	Organization      string
	OrderBy           string
}

var analysisOrderColumns = map[string]string{
	"name":         "name",
	"date_added":   "date_added",
	"date_updated": "date_updated",
	"dateAdded":    "date_added",
	"dateUpdated":  "date_updated",
}

// analysisOrder translates an order_by value ("-name", "dateAdded") into SQL.
// Unknown fields fall back to the default ordering.
func analysisOrder(orderBy string) string {
	desc := strings.HasPrefix(orderBy, "-")
	col, ok := analysisOrderColumns[strings.TrimPrefix(orderBy, "-")]
	if !ok {
		return "date_updated, date_added"
	}
	if desc {
		return col + " DESC"
	}
	return col
}

func preloadAnalysis(db *gorm.DB) *gorm.DB {
	return db.Preload("BaseCurrency").
		Preload("ForeignCurrency").
		Preload("TypeCategory").
		Preload("Organization")
}

func (s *Store) ListAnalyses(ctx context.Context, userID uuid.UUID, f AnalysisFilter, page Page) ([]model.Analysis, int64, error) {
	q := s.conn(ctx).Model(&model.Analysis{}).Where("is_deleted = ? AND user_id = ?", false, userID)
	if len(f.BaseCurrencies) > 0 {
		q = q.Where("base_currency_id IN (?)",
			s.conn(ctx).Model(&model.TypeCurrency{}).Select("id").Where("code IN ?", f.BaseCurrencies))
	}
	if len(f.ForeignCurrencies) > 0 {
		q = q.Where("foreign_currency_id IN (?)",
			s.conn(ctx).Model(&model.TypeCurrency{}).Select("id").Where("code IN ?", f.ForeignCurrencies))
	}
	if len(f.Categories) > 0 {
		q = q.Where("type_category_id IN (?)",
			s.conn(ctx).Model(&model.TypeCategory{}).Select("id").Where("name IN ?", f.Categories))
	}
	if f.Organization != "" {
		q = q.Where("organization_id IN (?)",
			s.conn(ctx).Model(&model.Organization{}).Select("id").Where("LOWER(name) = ?", strings.ToLower(f.Organization)))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.Analysis
	err := q.Scopes(preloadAnalysis, Paginate(page)).Order(analysisOrder(f.OrderBy)).Find(&out).Error
	return out, total, err
}

// AnalysisForUser returns the user's analysis, or ErrNotFound when it belongs
// to somebody else or is deleted.
func (s *Store) AnalysisForUser(ctx context.Context, userID, id uuid.UUID) (*model.Analysis, error) {
	var a model.Analysis
	err := s.conn(ctx).Scopes(preloadAnalysis, NotDeleted, OwnedBy(userID)).First(&a, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) CreateAnalysis(ctx context.Context, a *model.Analysis) error {
	return s.conn(ctx).Omit("User", "BaseCurrency", "ForeignCurrency", "TypeCategory", "Organization").Create(a).Error
}

func (s *Store) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	return s.conn(ctx).Omit("User", "BaseCurrency", "ForeignCurrency", "TypeCategory", "Organization").Save(a).Error
}

// SoftDeleteAnalysis flags the analysis and every strategy simulation, strategy
// instance and margin simulation beneath it.
func (s *Store) SoftDeleteAnalysis(ctx context.Context, id uuid.UUID) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := softDelete(ctx, tx, &model.Analysis{}, "id = ?", id); err != nil {
			return err
		}
		simIDs := tx.Model(&model.StrategySimulation{}).Select("id").Where("analysis_id = ?", id)
		if err := tx.Model(&model.StrategyInstance{}).
			Where("strategy_simulation_id IN (?)", simIDs).
			UpdateColumn("is_deleted", true).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.StrategySimulation{}).
			Where("analysis_id = ?", id).
			UpdateColumn("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&model.MarginSimulation{}).
			Where("analysis_id = ?", id).
			UpdateColumn("is_deleted", true).Error
	})
}

func (s *Store) ListWorkspaces(ctx context.Context, userID uuid.UUID, page Page) ([]model.Workspace, int64, error) {
	q := s.conn(ctx).Model(&model.Workspace{}).
		Where("is_deleted = ? AND user_id = ?", false, userID).
		Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.Workspace
	err := q.Scopes(preloadWorkspace, Paginate(page)).Order("date_updated DESC").Find(&out).Error
	return out, total, err
}

func preloadWorkspace(db *gorm.DB) *gorm.DB {
	return db.Preload("BaseCurrency").
		Preload("Analyses", notDeletedIn("analyses")).
		Preload("Analyses.BaseCurrency").
		Preload("Analyses.ForeignCurrency").
		Preload("Analyses.TypeCategory").
		Preload("Analyses.Organization")
}

func (s *Store) WorkspaceForUser(ctx context.Context, userID, id uuid.UUID) (*model.Workspace, error) {
	var w model.Workspace
	err := s.conn(ctx).Scopes(preloadWorkspace, NotDeleted, OwnedBy(userID)).First(&w, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (s *Store) CreateWorkspace(ctx context.Context, w *model.Workspace) error {
	return s.conn(ctx).Omit("BaseCurrency", "Analyses.*").Create(w).Error
}

func (s *Store) SaveWorkspace(ctx context.Context, w *model.Workspace) error {
	return s.conn(ctx).Omit("BaseCurrency", "Analyses").Save(w).Error
}

// ReplaceWorkspaceAnalyses rewrites the workspace membership list.
func (s *Store) ReplaceWorkspaceAnalyses(ctx context.Context, w *model.Workspace, analyses []model.Analysis) error {
	return s.conn(ctx).Model(w).Omit("Analyses.*").Association("Analyses").Replace(analyses)
}

func (s *Store) AddWorkspaceAnalysis(ctx context.Context, w *model.Workspace, a *model.Analysis) error {
	return s.conn(ctx).Model(w).Omit("Analyses.*").Association("Analyses").Append(a)
}

func (s *Store) RemoveWorkspaceAnalysis(ctx context.Context, w *model.Workspace, a *model.Analysis) error {
	return s.conn(ctx).Model(w).Association("Analyses").Delete(a)
}

func (s *Store) SoftDeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.Workspace{}, "id = ?", id)
}
