package model

import (
	"time"
)

// ServiceLog is one audited API request.
type ServiceLog struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	UserID       string         `json:"userId" gorm:"size:36;index"`
	Method       string         `json:"method" gorm:"size:10"`
	Path         string         `json:"path" gorm:"size:255"`
	IP           string         `json:"ip" gorm:"size:64"`
	UserAgent    string         `json:"userAgent" gorm:"size:255"`
	RequestBody  string         `json:"requestBody"`
	StatusCode   int            `json:"statusCode"`
	ResponseBody string         `json:"responseBody"`
	LatencyMs    int64          `json:"latencyMs"`
	Context      map[string]any `json:"context" gorm:"serializer:json"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"index"`
}
