package repository

import (
	"context"
	"strings"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/google/uuid"
)

// Organizations are administered by staff, who also see deleted rows.

func (s *Store) ListOrganizations(ctx context.Context, page Page) ([]model.Organization, int64, error) {
	var (
		out   []model.Organization
		total int64
	)
	if err := s.conn(ctx).Model(&model.Organization{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := s.conn(ctx).Preload("Users").Scopes(Paginate(page)).Order("name").Find(&out).Error
	return out, total, err
}

func (s *Store) OrganizationByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := s.conn(ctx).Preload("Users").First(&org, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &org, nil
}

func (s *Store) OrganizationByName(ctx context.Context, name string) (*model.Organization, error) {
	var org model.Organization
	err := s.conn(ctx).Scopes(NotDeleted).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&org).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &org, nil
}

func (s *Store) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return s.conn(ctx).Omit("Users").Create(org).Error
}

func (s *Store) SaveOrganization(ctx context.Context, org *model.Organization) error {
	return s.conn(ctx).Omit("Users").Save(org).Error
}

func (s *Store) SoftDeleteOrganization(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, s.db, &model.Organization{}, "id = ?", id)
}
