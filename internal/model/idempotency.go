package model

import "time"

// IdempotencyRecord is the stored outcome of a request replayed by
// X-Idempotency-Key.
type IdempotencyRecord struct {
	Status     int
	Body       []byte
	CreatedAt  time.Time
	Processing bool // 正在处理中，用于防止并发竞争
}
