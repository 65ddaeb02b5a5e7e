package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultFxMovementName    = "FX Heatmap"
	defaultSpotHistoryName   = "Spot History"
	defaultFwdEfficiencyName = "FWD Efficiency"
)

// PairToolRequest is the body of the forward efficiency and spot history
// tools. On create and PUT every field but name and layered is required.
type PairToolRequest struct {
	Name            *string      `json:"name" binding:"omitempty,max=100"`
	BaseCurrency    *CurrencyRef `json:"baseCurrency"`
	ForeignCurrency *CurrencyRef `json:"foreignCurrency"`
	DurationMonths  *int         `json:"durationMonths" binding:"omitempty,min=1"`
	Layered         *bool        `json:"layered"`
}

type CurrencyPairRequest struct {
	BaseCurrency    *CurrencyRef `json:"baseCurrency"`
	ForeignCurrency *CurrencyRef `json:"foreignCurrency"`
}

type FxMovementRequest struct {
	Name           *string               `json:"name" binding:"omitempty,max=100"`
	CurrencyPairs  []CurrencyPairRequest `json:"currencyPairs"`
	DurationMonths *int                  `json:"durationMonths" binding:"omitempty,min=1"`
}

// DefaultMarket is the caller's default tool of each kind.
type DefaultMarket struct {
	FxMovement    *model.FxMovement
	FwdEfficiency *model.FwdEfficiency
	SpotHistory   *model.SpotHistory
}

type MarketService struct {
	store *repository.Store
}

func NewMarketService(store *repository.Store) *MarketService {
	return &MarketService{store: store}
}

// InitUser creates the default market tools of a new account. store may be a
// transaction handle.
func (s *MarketService) InitUser(ctx context.Context, store *repository.Store, userID uuid.UUID) error {
	if store == nil {
		store = s.store
	}
	base, err := store.CurrencyByID(ctx, repository.DefaultBaseCurrencyID)
	if err != nil {
		return err
	}

	pairs := make([]model.FxCurrencyPair, 0, len(repository.DefaultForeignCurrencyIDs))
	for _, id := range repository.DefaultForeignCurrencyIDs {
		foreign, err := store.CurrencyByID(ctx, id)
		if err != nil {
			return err
		}
		pair, err := store.CurrencyPair(ctx, base, foreign)
		if err != nil {
			return err
		}
		pairs = append(pairs, *pair)
	}

	fm := &model.FxMovement{UserID: userID, Name: strPtr(defaultFxMovementName), Duration: 12, IsDefault: true}
	if err := store.SaveFxMovement(ctx, fm, pairs); err != nil {
		return err
	}
	sh := &model.SpotHistory{
		UserID:            userID,
		Name:              strPtr(defaultSpotHistoryName),
		BaseCurrencyID:    repository.DefaultBaseCurrencyID,
		ForeignCurrencyID: repository.DefaultForeignCurrencyID,
		Duration:          24,
		IsDefault:         true,
	}
	if err := store.SaveSpotHistory(ctx, sh); err != nil {
		return err
	}
	return store.SaveFwdEfficiency(ctx, &model.FwdEfficiency{
		UserID:            userID,
		Name:              strPtr(defaultFwdEfficiencyName),
		BaseCurrencyID:    repository.DefaultBaseCurrencyID,
		ForeignCurrencyID: repository.DefaultForeignCurrencyID,
		Duration:          24,
		IsDefault:         true,
	})
}

func (s *MarketService) Default(ctx context.Context, userID uuid.UUID) (*DefaultMarket, error) {
	fm, err1 := s.store.DefaultFxMovement(ctx, userID)
	fe, err2 := s.store.DefaultFwdEfficiency(ctx, userID)
	sh, err3 := s.store.DefaultSpotHistory(ctx, userID)
	if err := errors.Join(err1, err2, err3); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Generic("Default market not found", nil, http.StatusNotFound)
		}
		return nil, err
	}
	return &DefaultMarket{FxMovement: fm, FwdEfficiency: fe, SpotHistory: sh}, nil
}

// pairTool is the part FwdEfficiency and SpotHistory share.
type pairTool struct {
	name     **string
	base     *uuid.UUID
	baseRef  **model.TypeCurrency
	foreign  *uuid.UUID
	fgnRef   **model.TypeCurrency
	duration *int
}

func (s *MarketService) applyPairTool(ctx context.Context, t pairTool, req PairToolRequest, partial bool) error {
	if !partial {
		missing := map[string]string{}
		if req.BaseCurrency == nil {
			missing["baseCurrency"] = "This field is required."
		}
		if req.ForeignCurrency == nil {
			missing["foreignCurrency"] = "This field is required."
		}
		if req.DurationMonths == nil {
			missing["durationMonths"] = "This field is required."
		}
		if len(missing) > 0 {
			return apperrors.NewFieldErrors(missing)
		}
	}
	if req.Name != nil {
		*t.name = req.Name
	}
	if req.BaseCurrency != nil {
		c, err := resolveCurrency(ctx, s.store, "baseCurrency", req.BaseCurrency)
		if err != nil {
			return err
		}
		*t.base, *t.baseRef = c.ID, c
	}
	if req.ForeignCurrency != nil {
		c, err := resolveCurrency(ctx, s.store, "foreignCurrency", req.ForeignCurrency)
		if err != nil {
			return err
		}
		*t.foreign, *t.fgnRef = c.ID, c
	}
	if req.DurationMonths != nil {
		*t.duration = *req.DurationMonths
	}
	return nil
}

func (s *MarketService) ListFwdEfficiencies(ctx context.Context, userID uuid.UUID) ([]model.FwdEfficiency, error) {
	return s.store.ListFwdEfficiencies(ctx, userID)
}

func (s *MarketService) GetFwdEfficiency(ctx context.Context, userID, id uuid.UUID) (*model.FwdEfficiency, error) {
	fe, err := s.store.FwdEfficiency(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return fe, err
}

func (s *MarketService) CreateFwdEfficiency(ctx context.Context, userID uuid.UUID, req PairToolRequest) (*model.FwdEfficiency, error) {
	fe := &model.FwdEfficiency{UserID: userID}
	if err := s.saveFwdEfficiency(ctx, fe, req, false); err != nil {
		return nil, err
	}
	return fe, nil
}

func (s *MarketService) UpdateFwdEfficiency(ctx context.Context, userID, id uuid.UUID, req PairToolRequest, partial bool) (*model.FwdEfficiency, error) {
	fe, err := s.GetFwdEfficiency(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.saveFwdEfficiency(ctx, fe, req, partial); err != nil {
		return nil, err
	}
	return fe, nil
}

func (s *MarketService) saveFwdEfficiency(ctx context.Context, fe *model.FwdEfficiency, req PairToolRequest, partial bool) error {
	err := s.applyPairTool(ctx, pairTool{
		name: &fe.Name, base: &fe.BaseCurrencyID, baseRef: &fe.BaseCurrency,
		foreign: &fe.ForeignCurrencyID, fgnRef: &fe.ForeignCurrency, duration: &fe.Duration,
	}, req, partial)
	if err != nil {
		return err
	}
	return s.store.SaveFwdEfficiency(ctx, fe)
}

func (s *MarketService) DeleteFwdEfficiency(ctx context.Context, userID, id uuid.UUID) error {
	fe, err := s.GetFwdEfficiency(ctx, userID, id)
	if err != nil {
		return err
	}
	if fe.IsDefault {
		return apperrors.NewInvalidRequest("Cannot delete default FWD Efficiency")
	}
	return s.store.SoftDeleteFwdEfficiency(ctx, userID, id)
}

func (s *MarketService) ListSpotHistories(ctx context.Context, userID uuid.UUID) ([]model.SpotHistory, error) {
	return s.store.ListSpotHistories(ctx, userID)
}

func (s *MarketService) GetSpotHistory(ctx context.Context, userID, id uuid.UUID) (*model.SpotHistory, error) {
	sh, err := s.store.SpotHistory(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return sh, err
}

func (s *MarketService) CreateSpotHistory(ctx context.Context, userID uuid.UUID, req PairToolRequest) (*model.SpotHistory, error) {
	sh := &model.SpotHistory{UserID: userID}
	if err := s.saveSpotHistory(ctx, sh, req, false); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *MarketService) UpdateSpotHistory(ctx context.Context, userID, id uuid.UUID, req PairToolRequest, partial bool) (*model.SpotHistory, error) {
	sh, err := s.GetSpotHistory(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.saveSpotHistory(ctx, sh, req, partial); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *MarketService) saveSpotHistory(ctx context.Context, sh *model.SpotHistory, req PairToolRequest, partial bool) error {
	err := s.applyPairTool(ctx, pairTool{
		name: &sh.Name, base: &sh.BaseCurrencyID, baseRef: &sh.BaseCurrency,
		foreign: &sh.ForeignCurrencyID, fgnRef: &sh.ForeignCurrency, duration: &sh.Duration,
	}, req, partial)
	if err != nil {
		return err
	}
	if req.Layered != nil {
		sh.Layered = *req.Layered
	}
	return s.store.SaveSpotHistory(ctx, sh)
}

func (s *MarketService) DeleteSpotHistory(ctx context.Context, userID, id uuid.UUID) error {
	sh, err := s.GetSpotHistory(ctx, userID, id)
	if err != nil {
		return err
	}
	if sh.IsDefault {
		return apperrors.NewInvalidRequest("Cannot delete default Spot History")
	}
	return s.store.SoftDeleteSpotHistory(ctx, userID, id)
}

func (s *MarketService) ListFxMovements(ctx context.Context, userID uuid.UUID) ([]model.FxMovement, error) {
	return s.store.ListFxMovements(ctx, userID)
}

func (s *MarketService) GetFxMovement(ctx context.Context, userID, id uuid.UUID) (*model.FxMovement, error) {
	fm, err := s.store.FxMovement(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return fm, err
}

func (s *MarketService) CreateFxMovement(ctx context.Context, userID uuid.UUID, req FxMovementRequest) (*model.FxMovement, error) {
	fm := &model.FxMovement{UserID: userID}
	if err := s.saveFxMovement(ctx, fm, req, false); err != nil {
		return nil, err
	}
	return fm, nil
}

func (s *MarketService) UpdateFxMovement(ctx context.Context, userID, id uuid.UUID, req FxMovementRequest, partial bool) (*model.FxMovement, error) {
	fm, err := s.GetFxMovement(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.saveFxMovement(ctx, fm, req, partial); err != nil {
		return nil, err
	}
	return fm, nil
}

func (s *MarketService) saveFxMovement(ctx context.Context, fm *model.FxMovement, req FxMovementRequest, partial bool) error {
	if !partial {
		missing := map[string]string{}
		if req.CurrencyPairs == nil {
			missing["currencyPairs"] = "This field is required."
		}
		if req.DurationMonths == nil {
			missing["durationMonths"] = "This field is required."
		}
		if len(missing) > 0 {
			return apperrors.NewFieldErrors(missing)
		}
	}
	if req.Name != nil {
		fm.Name = req.Name
	}
	if req.DurationMonths != nil {
		fm.Duration = *req.DurationMonths
	}

	var pairs []model.FxCurrencyPair
	if req.CurrencyPairs != nil {
		pairs = make([]model.FxCurrencyPair, 0, len(req.CurrencyPairs))
		for _, p := range req.CurrencyPairs {
			if p.BaseCurrency == nil || p.ForeignCurrency == nil {
				return apperrors.NewFieldError("currencyPairs", "baseCurrency and foreignCurrency are required")
			}
			base, err := resolveCurrency(ctx, s.store, "currencyPairs", p.BaseCurrency)
			if err != nil {
				return err
			}
			foreign, err := resolveCurrency(ctx, s.store, "currencyPairs", p.ForeignCurrency)
			if err != nil {
				return err
			}
			pair, err := s.store.CurrencyPair(ctx, base, foreign)
			if err != nil {
				return err
			}
			pairs = append(pairs, *pair)
		}
	}
	return s.store.SaveFxMovement(ctx, fm, pairs)
}

func (s *MarketService) DeleteFxMovement(ctx context.Context, userID, id uuid.UUID) error {
	fm, err := s.GetFxMovement(ctx, userID, id)
	if err != nil {
		return err
	}
	if fm.IsDefault {
		return apperrors.NewInvalidRequest("Cannot delete default FX Movement")
	}
	return s.store.SoftDeleteFxMovement(ctx, userID, id)
}

func strPtr(s string) *string { return &s }
