package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/deaglo/apigateway/internal/model"
	"github.com/deaglo/apigateway/internal/pkg/logger"
)

const auditQueueSize = 1000

// AuditService records service logs off the request path. Entries go to a
// ring buffer for fast reads, then to the repository and a daily jsonl file.
type AuditService struct {
	logChan chan *model.ServiceLog
	logDir  string
	buffer  *auditBuffer
	repo    AuditRepo
	done    chan struct{}

	fileDay string
	file    *os.File
	encoder *json.Encoder
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.ServiceLog) error
	List(ctx context.Context, userID string, limit int, from, to *time.Time) ([]*model.ServiceLog, error)
}

// NewAuditService starts the consumer goroutine. size bounds both the queue
// and the ring buffer; zero means the default.
func NewAuditService(logDir string, size int, repo AuditRepo) (*AuditService, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = auditQueueSize
	}
	svc := &AuditService{
		logChan: make(chan *model.ServiceLog, size),
		logDir:  logDir,
		buffer:  newAuditBuffer(size),
		repo:    repo,
		done:    make(chan struct{}),
	}
	if err := svc.rotate(time.Now()); err != nil {
		return nil, err
	}

	go svc.processLogs()

	return svc, nil
}

// Log never blocks: when the queue is full the entry stays in the ring
// buffer only.
func (s *AuditService) Log(entry *model.ServiceLog) {
	s.buffer.Add(entry)
	select {
	case s.logChan <- entry:
	default:
		logger.Warn("⚠️ service log queue full, entry kept in memory only", "path", entry.Path)
	}
}

func (s *AuditService) List(ctx context.Context, userID string, limit int, from, to *time.Time) ([]*model.ServiceLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, userID, limit, from, to)
		if err == nil {
			return records, nil
		}
		logger.LogError(ctx, err, "service log query failed, serving from memory")
	}
	return s.buffer.List(userID, limit, from, to), nil
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	for entry := range s.logChan {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				logger.Error("❌ failed to store service log", "error", err)
			}
		}
		if err := s.rotate(entry.CreatedAt); err != nil {
			logger.Error("❌ failed to open service log file", "error", err)
			continue
		}
		if err := s.encoder.Encode(entry); err != nil {
			logger.Error("❌ failed to write service log", "error", err)
		}
	}
}

// rotate switches to the file of t's day. Only the consumer goroutine calls
// it after construction.
func (s *AuditService) rotate(t time.Time) error {
	if t.IsZero() {
		t = time.Now()
	}
	day := t.UTC().Format(model.DateLayout)
	if day == s.fileDay && s.file != nil {
		return nil
	}
	name := filepath.Join(s.logDir, "service-"+day+".jsonl")
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if s.file != nil {
		s.file.Close()
	}
	s.file, s.fileDay, s.encoder = f, day, json.NewEncoder(f)
	return nil
}

// Close drains the queue and closes the current file.
func (s *AuditService) Close() {
	close(s.logChan)
	<-s.done
	if s.file != nil {
		s.file.Close()
	}
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.ServiceLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = auditQueueSize
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.ServiceLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.ServiceLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List walks from newest to oldest.
func (b *auditBuffer) List(userID string, limit int, from, to *time.Time) []*model.ServiceLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.ServiceLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if userID != "" && entry.UserID != userID {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
