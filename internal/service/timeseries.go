package service

import (
	"context"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/repository"
)

const usd = "USD"

// SpotRate is one combined daily rate of a currency pair.
type SpotRate struct {
	Date model.Date `json:"date"`
	Rate float64    `json:"rate"`
}

// SpotHistoryService turns the per-currency USD rates into pair rates.
type SpotHistoryService struct {
	store *repository.Store
	now   func() time.Time
}

func NewSpotHistoryService(store *repository.Store) *SpotHistoryService {
	return &SpotHistoryService{store: store, now: time.Now}
}

// Rates returns base/foreign rates between from and to, newest first. Only
// dates carrying both currencies are kept; USD needs no row of its own.
func (s *SpotHistoryService) Rates(ctx context.Context, base, foreign string, from, to model.Date) ([]SpotRate, error) {
	rows, err := s.store.SpotRates(ctx, []string{base, foreign}, from, to)
	if err != nil {
		return nil, err
	}

	type day struct {
		base, foreign *float64
	}
	days := map[string]*day{}
	var order []model.Date
	for i := range rows {
		r := rows[i]
		key := r.Date.String()
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
			order = append(order, r.Date)
		}
		rate := r.Rate
		if r.Currency == base {
			d.base = &rate
		} else {
			d.foreign = &rate
		}
	}

	out := make([]SpotRate, 0, len(order))
	for _, date := range order {
		d := days[date.String()]
		rate, ok := combineRate(base, foreign, d.base, d.foreign)
		if !ok {
			continue
		}
		out = append(out, SpotRate{Date: date, Rate: rate})
	}
	return out, nil
}

// PairRates is Rates with the pair flipped when the base currency is sold.
func (s *SpotHistoryService) PairRates(ctx context.Context, base, foreign string, from, to model.Date, isBaseSold bool) ([]SpotRate, error) {
	if isBaseSold {
		base, foreign = foreign, base
	}
	return s.Rates(ctx, base, foreign, from, to)
}

// LastMonths covers the months up to today.
func (s *SpotHistoryService) LastMonths(ctx context.Context, base, foreign string, months int) ([]SpotRate, error) {
	to := model.NewDate(s.now())
	from := model.NewDate(to.AddDate(0, -months, 0))
	return s.Rates(ctx, base, foreign, from, to)
}

func combineRate(base, foreign string, baseRate, foreignRate *float64) (float64, bool) {
	switch {
	case base == usd:
		if foreignRate == nil {
			return 0, false
		}
		return *foreignRate, true
	case foreign == usd:
		if baseRate == nil || *baseRate == 0 {
			return 0, false
		}
		return 1 / *baseRate, true
	default:
		if baseRate == nil || foreignRate == nil || *baseRate == 0 {
			return 0, false
		}
		return *foreignRate / *baseRate, true
	}
}

type SpotHistoryRequest struct {
	BaseCurrency    *CurrencyRef `json:"baseCurrency" binding:"required"`
	ForeignCurrency *CurrencyRef `json:"foreignCurrency" binding:"required"`
	StartDate       *model.Date  `json:"startDate" binding:"required"`
	EndDate         *model.Date  `json:"endDate" binding:"required"`
	IsBaseSold      *bool        `json:"isBaseSold" binding:"required"`
}

// SpotHistoryResult echoes the request with the resolved currencies and the
// rates of the window.
type SpotHistoryResult struct {
	BaseCurrency    *model.TypeCurrency
	ForeignCurrency *model.TypeCurrency
	StartDate       model.Date
	EndDate         model.Date
	IsBaseSold      bool
	Rates           []SpotRate
}

func (s *SpotHistoryService) Query(ctx context.Context, req SpotHistoryRequest) (*SpotHistoryResult, error) {
	base, err := resolveCurrency(ctx, s.store, "baseCurrency", req.BaseCurrency)
	if err != nil {
		return nil, err
	}
	foreign, err := resolveCurrency(ctx, s.store, "foreignCurrency", req.ForeignCurrency)
	if err != nil {
		return nil, err
	}
	rates, err := s.PairRates(ctx, base.Code, foreign.Code, *req.StartDate, *req.EndDate, *req.IsBaseSold)
	if err != nil {
		return nil, err
	}
	return &SpotHistoryResult{
		BaseCurrency:    base,
		ForeignCurrency: foreign,
		StartDate:       *req.StartDate,
		EndDate:         *req.EndDate,
		IsBaseSold:      *req.IsBaseSold,
		Rates:           rates,
	}, nil
}
