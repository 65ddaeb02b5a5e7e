package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/deaglo/apigateway/internal/fenics"
	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/pkg/logger"
)

// Pricer is the FENICS client surface used here.
type Pricer interface {
	Vanilla(ctx context.Context, q fenics.VanillaQuery) (fenics.Fields, error)
	Barrier(ctx context.Context, q fenics.BarrierQuery) (fenics.Fields, error)
}

type SpotRequest struct {
	BaseCurrency    string      `json:"baseCurrency" binding:"required,len=3"`
	ForeignCurrency string      `json:"foreignCurrency" binding:"required,len=3"`
	IsBaseSold      *bool       `json:"isBaseSold" binding:"required"`
	StartDate       *model.Date `json:"startDate"`
}

type ForwardRequest struct {
	BaseCurrency    string      `json:"baseCurrency" binding:"required,len=3"`
	ForeignCurrency string      `json:"foreignCurrency" binding:"required,len=3"`
	IsBaseSold      *bool       `json:"isBaseSold" binding:"required"`
	StartDate       *model.Date `json:"startDate"`
	EndDate         *model.Date `json:"endDate" binding:"required"`
	SpotOverride    *float64    `json:"spotOverride"`
}

type OptionRequest struct {
	BaseCurrency    string      `json:"baseCurrency" binding:"required,len=3"`
	ForeignCurrency string      `json:"foreignCurrency" binding:"required,len=3"`
	IsBaseSold      *bool       `json:"isBaseSold" binding:"required"`
	IsBought        *bool       `json:"isBought" binding:"required"`
	IsCall          *bool       `json:"isCall" binding:"required"`
	OptionStyle     string      `json:"optionStyle" binding:"omitempty,oneof=european american"`
	Notional        *float64    `json:"notional" binding:"required"`
	Strike          *float64    `json:"strike" binding:"required"`
	StartDate       *model.Date `json:"startDate"`
	EndDate         *model.Date `json:"endDate" binding:"required"`
	BarrierType     *string     `json:"barrierType" binding:"omitempty,oneof=up-in up-out down-in down-out"`
	BarrierLevel    *float64    `json:"barrierLevel"`
	SpotOverride    *float64    `json:"spotOverride"`
	ForwardOverride *float64    `json:"forwardOverride"`
}

type PricingService struct {
	client Pricer
}

func NewPricingService(client Pricer) *PricingService {
	return &PricingService{client: client}
}

func dateTime(d *model.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// pricingError turns a rejected query into the 400 {"errors": ...} body.
func pricingError(err error) error {
	var qe *fenics.QueryError
	if errors.As(err, &qe) {
		return &PricingRejected{Errors: qe.Errors}
	}
	if errors.Is(err, fenics.ErrNotConfigured) {
		return apperrors.Generic("Service unavailable", nil, http.StatusServiceUnavailable)
	}
	return err
}

// PricingRejected is rendered verbatim as {"errors": ...} with status 400.
type PricingRejected struct {
	Errors any `json:"errors"`
}

func (e *PricingRejected) Error() string {
	return "pricing query rejected"
}

func (s *PricingService) Spot(ctx context.Context, req SpotRequest) (fenics.SpotRate, error) {
	fields, err := s.client.Vanilla(ctx, fenics.VanillaQuery{
		BaseCurrency:    req.BaseCurrency,
		ForeignCurrency: req.ForeignCurrency,
		IsBaseSold:      *req.IsBaseSold,
		StartDate:       dateTime(req.StartDate),
	})
	if err != nil {
		return fenics.SpotRate{}, pricingError(err)
	}
	return fields.Spot(), nil
}

func (s *PricingService) Forward(ctx context.Context, req ForwardRequest) (fenics.ForwardRate, error) {
	fields, err := s.client.Vanilla(ctx, fenics.VanillaQuery{
		BaseCurrency:    req.BaseCurrency,
		ForeignCurrency: req.ForeignCurrency,
		IsBaseSold:      *req.IsBaseSold,
		StartDate:       dateTime(req.StartDate),
		EndDate:         dateTime(req.EndDate),
		SpotOverride:    req.SpotOverride,
	})
	if err != nil {
		return fenics.ForwardRate{}, pricingError(err)
	}
	return fields.Forward(), nil
}

// Option prices a barrier option when both barrier fields are present and a
// vanilla one otherwise.
func (s *PricingService) Option(ctx context.Context, req OptionRequest, includeGreeks bool) (fenics.OptionPrice, error) {
	var (
		fields fenics.Fields
		err    error
	)
	if req.BarrierType != nil && req.BarrierLevel != nil {
		fields, err = s.client.Barrier(ctx, fenics.BarrierQuery{
			BaseCurrency:    req.BaseCurrency,
			ForeignCurrency: req.ForeignCurrency,
			BarrierType:     *req.BarrierType,
			BarrierLevel:    *req.BarrierLevel,
			IsCall:          *req.IsCall,
			Strike:          req.Strike,
			StartDate:       dateTime(req.StartDate),
			EndDate:         req.EndDate.Time,
			Notional:        req.Notional,
			SpotOverride:    req.SpotOverride,
			ForwardOverride: req.ForwardOverride,
			IsBaseSold:      *req.IsBaseSold,
			IsBought:        *req.IsBought,
		})
	} else {
		fields, err = s.client.Vanilla(ctx, fenics.VanillaQuery{
			BaseCurrency:    req.BaseCurrency,
			ForeignCurrency: req.ForeignCurrency,
			Notional:        req.Notional,
			SpotOverride:    req.SpotOverride,
			Strike:          req.Strike,
			IsCall:          *req.IsCall,
			StartDate:       dateTime(req.StartDate),
			EndDate:         dateTime(req.EndDate),
			OptionStyle:     req.OptionStyle,
			IsBaseSold:      *req.IsBaseSold,
			IsBought:        *req.IsBought,
		})
	}
	if err != nil {
		return fenics.OptionPrice{}, pricingError(err)
	}
	return fields.Option(includeGreeks), nil
}

// SpotRate is the live spot for a pair, or 1 when pricing is unavailable.
// Hedge simulations must still be accepted while FENICS is down.
func (s *PricingService) SpotRate(ctx context.Context, base, foreign string) float64 {
	fields, err := s.client.Vanilla(ctx, fenics.VanillaQuery{BaseCurrency: base, ForeignCurrency: foreign})
	if err != nil {
		logger.Warn("spot rate lookup failed, using 1", "base", base, "foreign", foreign, "error", err)
		return 1
	}
	if spot := fields.Number("Spot"); spot != nil {
		return *spot
	}
	return 1
}
