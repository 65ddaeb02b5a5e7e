package service

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
)

const (
	MsgSameCurrencies        = "baseCurrency and foreignCurrency cannot be the same"
	MsgBaseCurrencyMismatch  = "Base currency mismatch"
	WorkspaceActionAdd       = "add"
	WorkspaceActionRemove    = "remove"
	msgFieldRequired         = "This field is required."
	analysisPageSizeFallback = 6
)

// analysisQueryKeys maps accepted list parameters to their canonical name.
// Both the camelCase and the snake_case spelling are understood.
var analysisQueryKeys = map[string]string{
	"baseCurrency":     "baseCurrency",
	"base_currency":    "baseCurrency",
	"foreignCurrency":  "foreignCurrency",
	"foreign_currency": "foreignCurrency",
	"category":         "category",
	"organization":     "organization",
	"orderBy":          "orderBy",
	"order_by":         "orderBy",
	"withSimulations":  "withSimulations",
	"with_simulations": "withSimulations",
	"page":             "page",
}

type AnalysisRequest struct {
	Name            *string      `json:"name" binding:"omitempty,max=100"`
	Category        *string      `json:"category"`
	BaseCurrency    *CurrencyRef `json:"baseCurrency"`
	ForeignCurrency *CurrencyRef `json:"foreignCurrency"`
}

type WorkspaceRequest struct {
	Name         *string      `json:"name" binding:"omitempty,max=255"`
	BaseCurrency *CurrencyRef `json:"baseCurrency"`
	Analysis     []uuid.UUID  `json:"analysis"`
}

// AnalysisQuery is a parsed analysis list request.
type AnalysisQuery struct {
	Filter          repository.AnalysisFilter
	WithSimulations int
}

// ParseAnalysisQuery validates the list parameters. Unknown keys are rejected
// rather than ignored so a typo never returns an unfiltered list.
func ParseAnalysisQuery(values url.Values) (AnalysisQuery, error) {
	var q AnalysisQuery
	for key, vals := range values {
		name, ok := analysisQueryKeys[key]
		if !ok {
			return q, apperrors.NewInvalidRequest("Invalid filter parameter: " + key)
		}
		if len(vals) == 0 {
			continue
		}
		v := vals[len(vals)-1]
		switch name {
		case "baseCurrency":
			q.Filter.BaseCurrencies = splitList(v)
		case "foreignCurrency":
			q.Filter.ForeignCurrencies = splitList(v)
		case "category":
			q.Filter.Categories = splitList(v)
		case "organization":
			q.Filter.Organization = strings.TrimSpace(v)
		case "orderBy":
			q.Filter.OrderBy = strings.TrimSpace(v)
		case "withSimulations":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				q.WithSimulations = n
			}
		}
	}
	return q, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AnalysisWithSimulations is a list row with its newest simulations attached.
type AnalysisWithSimulations struct {
	model.Analysis
	Simulations []SimulationSummary
}

type AnalysisService struct {
	store *repository.Store
	sims  *SimulationListService
}

func NewAnalysisService(store *repository.Store, sims *SimulationListService) *AnalysisService {
	return &AnalysisService{store: store, sims: sims}
}

func (s *AnalysisService) List(ctx context.Context, user *model.User, q AnalysisQuery, page repository.Page) ([]AnalysisWithSimulations, int64, error) {
	if page.Size <= 0 {
		page.Size = analysisPageSizeFallback
	}
	rows, total, err := s.store.ListAnalyses(ctx, user.ID, q.Filter, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AnalysisWithSimulations, 0, len(rows))
	for _, a := range rows {
		item := AnalysisWithSimulations{Analysis: a}
		if q.WithSimulations > 0 {
			item.Simulations, err = s.newestSimulations(ctx, a.ID, q.WithSimulations)
			if err != nil {
				return nil, 0, err
			}
		}
		out = append(out, item)
	}
	return out, total, nil
}

// newestSimulations merges the three kinds and keeps the take most recently
// updated.
func (s *AnalysisService) newestSimulations(ctx context.Context, analysisID uuid.UUID, take int) ([]SimulationSummary, error) {
	all, err := s.sims.load(ctx, analysisID, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].DateUpdated.After(all[j].DateUpdated)
	})
	if len(all) > take {
		all = all[:take]
	}
	return all, nil
}

func (s *AnalysisService) Get(ctx context.Context, user *model.User, id uuid.UUID) (*model.Analysis, error) {
	a, err := s.store.AnalysisForUser(ctx, user.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return a, err
}

func (s *AnalysisService) Create(ctx context.Context, user *model.User, req AnalysisRequest) (*model.Analysis, error) {
	a := &model.Analysis{UserID: user.ID, OrganizationID: user.OrganizationID}
	if err := s.apply(ctx, a, req, false); err != nil {
		return nil, err
	}
	if err := s.store.CreateAnalysis(ctx, a); err != nil {
		return nil, err
	}
	return s.Get(ctx, user, a.ID)
}

func (s *AnalysisService) Update(ctx context.Context, user *model.User, id uuid.UUID, req AnalysisRequest, partial bool) (*model.Analysis, error) {
	a, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, a, req, partial); err != nil {
		return nil, err
	}
	if err := s.store.SaveAnalysis(ctx, a); err != nil {
		return nil, err
	}
	return s.Get(ctx, user, a.ID)
}

// Delete hides the analysis together with its strategy and margin simulations.
func (s *AnalysisService) Delete(ctx context.Context, user *model.User, id uuid.UUID) error {
	if _, err := s.Get(ctx, user, id); err != nil {
		return err
	}
	return s.store.SoftDeleteAnalysis(ctx, id)
}

func (s *AnalysisService) apply(ctx context.Context, a *model.Analysis, req AnalysisRequest, partial bool) error {
	if !partial {
		missing := map[string]string{}
		if req.Name == nil {
			missing["name"] = msgFieldRequired
		}
		if req.BaseCurrency == nil {
			missing["baseCurrency"] = msgFieldRequired
		}
		if req.ForeignCurrency == nil {
			missing["foreignCurrency"] = msgFieldRequired
		}
		if len(missing) > 0 {
			return apperrors.NewFieldErrors(missing)
		}
	}
	if req.Name != nil {
		a.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		a.TypeCategoryID = nil
		if *req.Category != "" {
			cat, err := s.store.CategoryByName(ctx, *req.Category)
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewFieldError("category", "Object with name="+*req.Category+" does not exist.")
			}
			if err != nil {
				return err
			}
			a.TypeCategoryID = &cat.ID
		}
	}
	if req.BaseCurrency != nil {
		c, err := resolveCurrency(ctx, s.store, "baseCurrency", req.BaseCurrency)
		if err != nil {
			return err
		}
		a.BaseCurrencyID = c.ID
	}
	if req.ForeignCurrency != nil {
		c, err := resolveCurrency(ctx, s.store, "foreignCurrency", req.ForeignCurrency)
		if err != nil {
			return err
		}
		a.ForeignCurrencyID = c.ID
	}
	if a.BaseCurrencyID == a.ForeignCurrencyID {
		return apperrors.NewInvalidRequest(MsgSameCurrencies)
	}
	a.TypeCategory, a.BaseCurrency, a.ForeignCurrency, a.Organization = nil, nil, nil, nil
	return nil
}

func (s *AnalysisService) ListWorkspaces(ctx context.Context, user *model.User, page repository.Page) ([]model.Workspace, int64, error) {
	return s.store.ListWorkspaces(ctx, user.ID, page)
}

func (s *AnalysisService) GetWorkspace(ctx context.Context, user *model.User, id uuid.UUID) (*model.Workspace, error) {
	w, err := s.store.WorkspaceForUser(ctx, user.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return w, err
}

func (s *AnalysisService) CreateWorkspace(ctx context.Context, user *model.User, req WorkspaceRequest) (*model.Workspace, error) {
	w := &model.Workspace{UserID: user.ID}
	analyses, err := s.applyWorkspace(ctx, user, w, req, false)
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.CreateWorkspace(ctx, w); err != nil {
			return err
		}
		if analyses != nil {
			return tx.ReplaceWorkspaceAnalyses(ctx, w, analyses)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetWorkspace(ctx, user, w.ID)
}

func (s *AnalysisService) UpdateWorkspace(ctx context.Context, user *model.User, id uuid.UUID, req WorkspaceRequest, partial bool) (*model.Workspace, error) {
	w, err := s.GetWorkspace(ctx, user, id)
	if err != nil {
		return nil, err
	}
	analyses, err := s.applyWorkspace(ctx, user, w, req, partial)
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.SaveWorkspace(ctx, w); err != nil {
			return err
		}
		if analyses != nil {
			return tx.ReplaceWorkspaceAnalyses(ctx, w, analyses)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetWorkspace(ctx, user, w.ID)
}

func (s *AnalysisService) DeleteWorkspace(ctx context.Context, user *model.User, id uuid.UUID) error {
	if _, err := s.GetWorkspace(ctx, user, id); err != nil {
		return err
	}
	return s.store.SoftDeleteWorkspace(ctx, id)
}

// applyWorkspace returns the new membership list, or nil when the request
// leaves it untouched.
func (s *AnalysisService) applyWorkspace(ctx context.Context, user *model.User, w *model.Workspace, req WorkspaceRequest, partial bool) ([]model.Analysis, error) {
	if !partial && req.Name == nil {
		return nil, apperrors.NewFieldError("name", msgFieldRequired)
	}
	if req.Name != nil {
		w.Name = strings.TrimSpace(*req.Name)
	}
	if req.BaseCurrency != nil {
		c, err := resolveCurrency(ctx, s.store, "baseCurrency", req.BaseCurrency)
		if err != nil {
			return nil, err
		}
		w.BaseCurrencyID = &c.ID
	}
	w.BaseCurrency = nil
	if req.Analysis == nil {
		return nil, nil
	}
	analyses := make([]model.Analysis, 0, len(req.Analysis))
	for _, aid := range req.Analysis {
		a, err := s.store.AnalysisForUser(ctx, user.ID, aid)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewFieldError("analysis", `Invalid pk "`+aid.String()+`" - object does not exist.`)
		}
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, nil
}

// ModifyWorkspace adds an analysis to, or removes it from, a workspace. An
// analysis can only join a workspace sharing its base currency.
func (s *AnalysisService) ModifyWorkspace(ctx context.Context, user *model.User, workspaceID, analysisID uuid.UUID, action string) error {
	if action != WorkspaceActionAdd && action != WorkspaceActionRemove {
		return apperrors.NewInvalidRequest("Invalid action")
	}
	w, err := s.GetWorkspace(ctx, user, workspaceID)
	if err != nil {
		return err
	}
	a, err := s.Get(ctx, user, analysisID)
	if err != nil {
		return err
	}
	if action == WorkspaceActionRemove {
		return s.store.RemoveWorkspaceAnalysis(ctx, w, a)
	}
	if w.BaseCurrencyID != nil && *w.BaseCurrencyID != a.BaseCurrencyID {
		return apperrors.NewInvalidRequest(MsgBaseCurrencyMismatch)
	}
	return s.store.AddWorkspaceAnalysis(ctx, w, a)
}
