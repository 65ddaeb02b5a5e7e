package repository

import (
	"context"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"gorm.io/gorm/clause"
)

// SpotRates returns the stored USD rates of the given currency codes between
// from and to (inclusive), newest first.
func (s *Store) SpotRates(ctx context.Context, codes []string, from, to model.Date) ([]model.SpotHistoryData, error) {
	var out []model.SpotHistoryData
	err := s.conn(ctx).
		Where("currency IN ? AND date BETWEEN ? AND ?", codes, from, to).
		Order("date DESC").
		Find(&out).Error
	return out, err
}

func (s *Store) InsertSpotRates(ctx context.Context, rows []model.SpotHistoryData) error {
	if len(rows) == 0 {
		return nil
	}
	return s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error
}

type spotSummary struct {
	Currency string
	LastDate model.Date
	AvgRate  float64
}

// BackfillSpotRates pads every currency up to today with its average rate,
// one row per work day. Only meant for development databases that are not
// fed by the market data loader.
func (s *Store) BackfillSpotRates(ctx context.Context, today time.Time) (int, error) {
	var summaries []spotSummary
	err := s.conn(ctx).Model(&model.SpotHistoryData{}).
		Select("currency, MAX(date) AS last_date, AVG(rate) AS avg_rate").
		Group("currency").
		Scan(&summaries).Error
	if err != nil {
		return 0, err
	}

	end := model.NewDate(today)
	var rows []model.SpotHistoryData
	for _, sum := range summaries {
		if sum.LastDate.IsZero() {
			continue
		}
		for d := NextWorkDay(sum.LastDate); !d.After(end.Time); d = NextWorkDay(d) {
			rows = append(rows, model.SpotHistoryData{Date: d, Currency: sum.Currency, Rate: sum.AvgRate})
		}
	}
	return len(rows), s.InsertSpotRates(ctx, rows)
}

// NextWorkDay skips Saturdays and Sundays.
func NextWorkDay(d model.Date) model.Date {
	switch d.Weekday() {
	case time.Friday:
		return model.NewDate(d.AddDate(0, 0, 3))
	case time.Saturday:
		return model.NewDate(d.AddDate(0, 0, 2))
	default:
		return model.NewDate(d.AddDate(0, 0, 1))
	}
}
