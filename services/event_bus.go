package services

import (
	"context"
	"time"

	"nutrition/models"
	"nutrition/repositories"

	"go.uber.org/zap"
)

// Publisher is notified after an event has been recorded.
type Publisher interface {
	Publish(ev models.FoodEvent)
}

// EventBus records food mutations and forwards them to a Publisher.
// Recording failures are logged, never returned: the mutation itself has
// already been committed.
type EventBus struct {
	repo repositories.EventRepository
	pub  Publisher
	log  *zap.Logger
	now  func() time.Time
}

func NewEventBus(repo repositories.EventRepository, pub Publisher, log *zap.Logger) *EventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBus{repo: repo, pub: pub, log: log, now: time.Now}
}

func (b *EventBus) Emit(ctx context.Context, kind models.FoodEventKind, food models.Food) {
	if b == nil {
		return
	}
	foodMutations.WithLabelValues(string(kind)).Inc()

	ev := &models.FoodEvent{
		FoodID:    food.ID,
		Kind:      kind,
		Snapshot:  food,
		CreatedAt: b.now().UTC(),
	}
	if b.repo != nil {
		if err := b.repo.Append(ctx, ev); err != nil {
			b.log.Warn("record food event",
				zap.String("kind", string(kind)),
				zap.Int64("food_id", food.ID),
				zap.Error(err))
		}
	}
	if b.pub != nil {
		b.pub.Publish(*ev)
	}
}
