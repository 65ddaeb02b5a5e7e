package repository

import (
	"context"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"gorm.io/gorm/clause"
)

// AuditRepo writes request logs to the service_logs table.
type AuditRepo struct {
	store *Store
}

func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Insert(ctx context.Context, entry *model.ServiceLog) error {
	if entry == nil {
		return nil
	}
	return r.store.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
}

func (r *AuditRepo) List(ctx context.Context, userID string, limit int, from, to *time.Time) ([]*model.ServiceLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := r.store.conn(ctx).Model(&model.ServiceLog{})
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}
	records := make([]*model.ServiceLog, 0, limit)
	err := q.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Cleanup removes entries older than the retention window.
func (r *AuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return r.store.conn(ctx).Where("created_at < ?", cutoff).Delete(&model.ServiceLog{}).Error
}
