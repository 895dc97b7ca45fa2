package services

import "errors"

var (
	ErrFoodNotFound    = errors.New("food not found")
	ErrFoodExists      = errors.New("food already exists")
	ErrInvalidFood     = errors.New("invalid food")
	ErrStorageDisabled = errors.New("image storage is not configured")
)
