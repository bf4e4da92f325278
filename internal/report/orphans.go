package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RollbackFault is a compensating delete that failed. The record it was
// meant to remove is still in the store and needs manual cleanup.
type RollbackFault struct {
	Entity Entity
	ID     int64
	Err    error
}

func (f RollbackFault) Error() string {
	return fmt.Sprintf("rollback of %s %d failed: %v", f.Entity, f.ID, f.Err)
}

func (f RollbackFault) Unwrap() error {
	return f.Err
}

type OrphanRecorder interface {
	Record(ctx context.Context, fault RollbackFault) error
}

// Orphan is the queued form of a RollbackFault.
type Orphan struct {
	ID       string    `json:"id"`
	Entity   Entity    `json:"entity"`
	EntityID int64     `json:"entity_id"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

const orphanQueueKey = "reports:orphans"

// OrphanQueue keeps rollback faults in a redis list for operators.
type OrphanQueue struct {
	client *redis.Client
	key    string
}

func NewOrphanQueue(client *redis.Client) *OrphanQueue {
	return &OrphanQueue{client: client, key: orphanQueueKey}
}

func (q *OrphanQueue) Record(ctx context.Context, fault RollbackFault) error {
	b, err := json.Marshal(Orphan{
		ID:       uuid.NewString(),
		Entity:   fault.Entity,
		EntityID: fault.ID,
		Error:    fault.Err.Error(),
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

// Pending returns queued orphans, most recent first.
func (q *OrphanQueue) Pending(ctx context.Context) ([]Orphan, error) {
	raw, err := q.client.LRange(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	orphans := make([]Orphan, 0, len(raw))
	for _, item := range raw {
		var o Orphan
		if err := json.Unmarshal([]byte(item), &o); err != nil {
			return nil, err
		}
		orphans = append(orphans, o)
	}
	return orphans, nil
}
