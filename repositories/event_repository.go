package repositories

import (
	"context"
	"fmt"

	"nutrition/models"

	"gorm.io/gorm"
)

const DefaultHistoryLimit = 50

// EventRepository keeps the change history of foods.
type EventRepository interface {
	Append(ctx context.Context, ev *models.FoodEvent) error
	ListByFood(ctx context.Context, foodID int64, limit int) ([]models.FoodEvent, error)
}

type gormEventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

func (r *gormEventRepository) Append(ctx context.Context, ev *models.FoodEvent) error {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("append %s event for food %d: %w", ev.Kind, ev.FoodID, err)
	}
	return nil
}

// ListByFood returns newest events first.
func (r *gormEventRepository) ListByFood(ctx context.Context, foodID int64, limit int) ([]models.FoodEvent, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	events := []models.FoodEvent{}
	err := r.db.WithContext(ctx).
		Where("food_id = ?", foodID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events for food %d: %w", foodID, err)
	}
	return events, nil
}
