package models

import "time"

type FoodEventKind string

const (
	FoodCreated FoodEventKind = "food.created"
	FoodUpdated FoodEventKind = "food.updated"
	FoodPatched FoodEventKind = "food.patched"
	FoodDeleted FoodEventKind = "food.deleted"
	FoodImage   FoodEventKind = "food.image"
)

// FoodEvent records one mutation of a food together with the resulting state.
type FoodEvent struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	FoodID    int64         `json:"foodId" gorm:"index;not null"`
	Kind      FoodEventKind `json:"kind" gorm:"size:32;not null"`
	Snapshot  Food          `json:"food" gorm:"serializer:json;type:text"`
	CreatedAt time.Time     `json:"createdAt"`
}
