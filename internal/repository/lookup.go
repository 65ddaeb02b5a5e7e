package repository

import (
	"context"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
)

// currencyContexts maps the ?ctx= filter of the currency list to its flag column.
var currencyContexts = map[string]string{
	"analysis":       "is_analysis",
	"spot_history":   "is_spot_history",
	"fwd_efficiency": "is_fwd_efficiency",
	"fx_movement":    "is_fx_movement",
}

func IsCurrencyContext(ctx string) bool {
	_, ok := currencyContexts[ctx]
	return ok
}

func (s *Store) ListCurrencies(ctx context.Context, usage string) ([]model.TypeCurrency, error) {
	q := s.conn(ctx).Scopes(NotDeleted).Order("sort_order, code")
	if col, ok := currencyContexts[usage]; ok {
		q = q.Where(col+" = ?", true)
	}
	var out []model.TypeCurrency
	err := q.Find(&out).Error
	return out, err
}

func (s *Store) CurrencyByID(ctx context.Context, id uuid.UUID) (*model.TypeCurrency, error) {
	var c model.TypeCurrency
	if err := s.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CurrencyByCode(ctx context.Context, code string) (*model.TypeCurrency, error) {
	var c model.TypeCurrency
	err := s.conn(ctx).Scopes(NotDeleted).
		Where("UPPER(code) = ?", strings.ToUpper(code)).
		Order("sort_order").
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// CurrencyByCodeAndCountry resolves a currency the way clients reference it:
// several countries share a code (EUR), so the country disambiguates.
func (s *Store) CurrencyByCodeAndCountry(ctx context.Context, code, country string) (*model.TypeCurrency, error) {
	var c model.TypeCurrency
	err := s.conn(ctx).Scopes(NotDeleted).
		Where("UPPER(code) = ? AND LOWER(country_name) = ?", strings.ToUpper(code), strings.ToLower(country)).
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) CategoryByName(ctx context.Context, name string) (*model.TypeCategory, error) {
	var c model.TypeCategory
	err := s.conn(ctx).Scopes(NotDeleted).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) UserRoleByName(ctx context.Context, name string) (*model.TypeUserRole, error) {
	var r model.TypeUserRole
	err := s.conn(ctx).Scopes(NotDeleted).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Store) ListStatuses(ctx context.Context) ([]model.TypeStatus, error) {
	var out []model.TypeStatus
	err := s.conn(ctx).Scopes(NotDeleted).Order("name").Find(&out).Error
	return out, err
}

func (s *Store) StatusByName(ctx context.Context, name string) (*model.TypeStatus, error) {
	var st model.TypeStatus
	err := s.conn(ctx).Scopes(NotDeleted).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&st).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &st, nil
}
