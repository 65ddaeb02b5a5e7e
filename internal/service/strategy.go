package service

import (
	"context"
	"errors"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StrategyLegRequest struct {
	IsCall       *bool            `json:"isCall"`
	IsBought     *bool            `json:"isBought" binding:"required"`
	Premium      *decimal.Decimal `json:"premium" binding:"required"`
	Leverage     *float64         `json:"leverage" binding:"required,min=0,max=1"`
	Strike       *float64         `json:"strike" binding:"omitempty,min=-100,max=100"`
	BarrierType  *string          `json:"barrierType" binding:"omitempty,max=8"`
	BarrierLevel *float64         `json:"barrierLevel" binding:"omitempty,min=-100,max=100"`
}

type StrategyRequest struct {
	Name        string               `json:"name" binding:"required,max=100"`
	Description string               `json:"description" binding:"max=300"`
	Legs        []StrategyLegRequest `json:"legs" binding:"required,min=1,dive"`
}

// StrategyService manages user-defined strategies. Default strategies are
// readable by everyone and writable by nobody.
type StrategyService struct {
	store *repository.Store
}

func NewStrategyService(store *repository.Store) *StrategyService {
	return &StrategyService{store: store}
}

func (s *StrategyService) List(ctx context.Context, user *model.User) ([]model.Strategy, error) {
	return s.store.ListStrategies(ctx, user.ID)
}

func (s *StrategyService) Get(ctx context.Context, user *model.User, id uuid.UUID) (*model.Strategy, error) {
	st, err := s.store.VisibleStrategy(ctx, user.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	return st, err
}

func (s *StrategyService) Create(ctx context.Context, user *model.User, req StrategyRequest) (*model.Strategy, error) {
	legs, err := buildLegs(req.Legs)
	if err != nil {
		return nil, err
	}
	st := &model.Strategy{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		CreatedByUserID: &user.ID,
		Legs:            legs,
	}
	if err := s.store.CreateStrategy(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Update retires the current legs and stores the sent ones.
func (s *StrategyService) Update(ctx context.Context, user *model.User, id uuid.UUID, req StrategyRequest) (*model.Strategy, error) {
	st, err := s.store.CustomStrategy(ctx, user.ID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("")
	}
	if err != nil {
		return nil, err
	}
	legs, err := buildLegs(req.Legs)
	if err != nil {
		return nil, err
	}
	st.Name = strings.TrimSpace(req.Name)
	st.Description = req.Description
	if err := s.store.ReplaceStrategyLegs(ctx, st, legs); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *StrategyService) Delete(ctx context.Context, user *model.User, id uuid.UUID) error {
	if _, err := s.store.CustomStrategy(ctx, user.ID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("")
		}
		return err
	}
	return s.store.SoftDeleteStrategy(ctx, id)
}

func buildLegs(reqs []StrategyLegRequest) ([]model.StrategyLeg, error) {
	if len(reqs) == 0 {
		return nil, apperrors.NewFieldError("legs", "Ensure this field has at least 1 elements.")
	}
	legs := make([]model.StrategyLeg, 0, len(reqs))
	for _, r := range reqs {
		if r.IsBought == nil || r.Premium == nil || r.Leverage == nil {
			return nil, apperrors.NewFieldError("legs", msgFieldRequired)
		}
		if r.Premium.IsNegative() {
			return nil, apperrors.NewFieldError("premium", "Ensure this value is greater than or equal to 0.0.")
		}
		legs = append(legs, model.StrategyLeg{
			IsCall:       r.IsCall,
			IsBought:     *r.IsBought,
			Premium:      r.Premium.Round(2),
			Leverage:     *r.Leverage,
			Strike:       r.Strike,
			BarrierType:  r.BarrierType,
			BarrierLevel: r.BarrierLevel,
		})
	}
	return legs, nil
}
