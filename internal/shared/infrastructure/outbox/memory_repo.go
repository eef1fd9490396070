package outbox

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository implements Repository in memory, for local mode and tests.
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	messages []*Message
}

// NewMemoryRepository creates an in-memory outbox repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

// Save stores a new outbox message.
func (r *MemoryRepository) Save(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.save(msg)
	return nil
}

// SaveBatch stores multiple outbox messages.
func (r *MemoryRepository) SaveBatch(_ context.Context, msgs []*Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		r.save(msg)
	}
	return nil
}

func (r *MemoryRepository) save(msg *Message) {
	msg.ID = r.nextID
	r.nextID++
	r.messages = append(r.messages, msg)
}

// GetUnpublished retrieves unpublished messages in insertion order.
func (r *MemoryRepository) GetUnpublished(_ context.Context, limit int) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var unpublished []*Message
	for _, msg := range r.messages {
		if msg.PublishedAt != nil || msg.DeadLetteredAt != nil {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		unpublished = append(unpublished, msg)
		if limit > 0 && len(unpublished) >= limit {
			break
		}
	}
	return unpublished, nil
}

// MarkPublished marks a message as published.
func (r *MemoryRepository) MarkPublished(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, msg := range r.messages {
		if msg.ID == id {
			msg.PublishedAt = &now
			return nil
		}
	}
	return nil
}

// MarkFailed records a publish failure.
func (r *MemoryRepository) MarkFailed(_ context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range r.messages {
		if msg.ID == id {
			msg.RetryCount++
			msg.LastError = &errMsg
			msg.NextRetryAt = &nextRetryAt
			return nil
		}
	}
	return nil
}

// MarkDead marks a message as dead-lettered.
func (r *MemoryRepository) MarkDead(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, msg := range r.messages {
		if msg.ID == id {
			msg.RetryCount++
			msg.DeadLetteredAt = &now
			msg.DeadLetterReason = &reason
			return nil
		}
	}
	return nil
}

// DeleteOld removes published messages older than the retention period.
func (r *MemoryRepository) DeleteOld(_ context.Context, olderThanDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	kept := r.messages[:0]
	var deleted int64
	for _, msg := range r.messages {
		if msg.PublishedAt != nil && msg.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	r.messages = kept
	return deleted, nil
}

// All returns every stored message, used by tests.
func (r *MemoryRepository) All() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Message, len(r.messages))
	copy(out, r.messages)
	return out
}
