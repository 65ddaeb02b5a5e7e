package service

import (
	"context"
	"errors"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/repository"
)

// CurrencyRef is how clients name a currency: the code alone is ambiguous
// (EUR is shared by several countries), the country settles it.
type CurrencyRef struct {
	Code        string `json:"code" binding:"required,len=3"`
	CountryName string `json:"countryName" binding:"required"`
}

func resolveCurrency(ctx context.Context, store *repository.Store, field string, ref *CurrencyRef) (*model.TypeCurrency, error) {
	if ref == nil || ref.Code == "" || ref.CountryName == "" {
		return nil, apperrors.NewFieldError(field, "code and countryName are required")
	}
	c, err := store.CurrencyByCodeAndCountry(ctx, ref.Code, ref.CountryName)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewFieldError(field, "Currency not found.")
	}
	return c, err
}

type CurrencyService struct {
	store *repository.Store
}

func NewCurrencyService(store *repository.Store) *CurrencyService {
	return &CurrencyService{store: store}
}

// List filters by usage context (analysis, spot_history, ...). An unknown
// context lists every currency.
func (s *CurrencyService) List(ctx context.Context, usage string) ([]model.TypeCurrency, error) {
	return s.store.ListCurrencies(ctx, strings.ToLower(strings.TrimSpace(usage)))
}
