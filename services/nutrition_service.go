package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutrition/models"
	"nutrition/repositories"
	"nutrition/utils"

	"go.uber.org/zap"
)

// ImageStore persists an uploaded image and returns the URL it is served from.
type ImageStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type NutritionService struct {
	foods  repositories.FoodRepository
	events repositories.EventRepository
	bus    *EventBus
	images ImageStore
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*NutritionService)

func WithEventBus(bus *EventBus) Option {
	return func(s *NutritionService) { s.bus = bus }
}

// WithEventHistory enables History lookups.
func WithEventHistory(repo repositories.EventRepository) Option {
	return func(s *NutritionService) { s.events = repo }
}

func WithImageStore(store ImageStore) Option {
	return func(s *NutritionService) { s.images = store }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *NutritionService) { s.log = log }
}

func NewNutritionService(foods repositories.FoodRepository, opts ...Option) *NutritionService {
	s := &NutritionService{
		foods: foods,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FoodPatch carries the fields of a partial update. Nil fields are left untouched.
type FoodPatch struct {
	Name         *string
	Description  *string
	Calories     *float64
	Carbohydrate *float64
	Fat          *float64
	Protein      *float64
	ServingSize  *models.ServingSize
}

func (p FoodPatch) Empty() bool {
	return p.Name == nil && p.Description == nil &&
		p.Calories == nil && p.Carbohydrate == nil && p.Fat == nil && p.Protein == nil &&
		p.ServingSize == nil
}

// Apply merges the patch into f. An empty description clears it.
func (p FoodPatch) Apply(f *models.Food) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Description != nil {
		if strings.TrimSpace(*p.Description) == "" {
			f.Description = nil
		} else {
			f.Description = models.StringPtr(*p.Description)
		}
	}
	if p.Calories != nil {
		f.Nutrition.Calories = *p.Calories
	}
	if p.Carbohydrate != nil {
		f.Nutrition.Carbohydrate = *p.Carbohydrate
	}
	if p.Fat != nil {
		f.Nutrition.Fat = *p.Fat
	}
	if p.Protein != nil {
		f.Nutrition.Protein = *p.Protein
	}
	if p.ServingSize != nil {
		f.Nutrition.ServingSize = *p.ServingSize
	}
}

func (s *NutritionService) GetFood(ctx context.Context, id int64) (*models.Food, error) {
	food, err := s.foods.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return food, nil
}

type FoodPage struct {
	Items []models.Food `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

func (s *NutritionService) ListFoods(ctx context.Context, q repositories.ListQuery) (*FoodPage, error) {
	q = q.Normalize()
	items, total, err := s.foods.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}
	return &FoodPage{Items: items, Total: total, Page: q.Page, Size: q.Size}, nil
}

// CreateFood stores a new food. A client supplied id is kept unless it is taken.
func (s *NutritionService) CreateFood(ctx context.Context, in *models.Food) (*models.Food, error) {
	food := models.Food{
		ID:          in.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: normalizeDescription(in.Description),
		Nutrition:   in.Nutrition,
	}
	if err := food.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFood, err)
	}

	if food.ID < 0 {
		return nil, fmt.Errorf("%w: id must not be negative", ErrInvalidFood)
	}
	if food.ID != 0 {
		exists, err := s.foods.Exists(ctx, food.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: id %d", ErrFoodExists, food.ID)
		}
	}

	// a concurrent create of the same id passes Exists and fails here
	if err := s.foods.Create(ctx, &food); err != nil {
		if errors.Is(err, repositories.ErrDuplicateID) {
			return nil, fmt.Errorf("%w: id %d", ErrFoodExists, food.ID)
		}
		return nil, err
	}
	s.log.Info("food created", zap.Int64("food_id", food.ID), zap.String("name", food.Name))
	s.bus.Emit(ctx, models.FoodCreated, food)
	return &food, nil
}

// UpdateFood replaces every mutable field of food id. The id in the body is ignored.
func (s *NutritionService) UpdateFood(ctx context.Context, id int64, in *models.Food) (*models.Food, error) {
	food, err := s.foods.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}

	food.Name = strings.TrimSpace(in.Name)
	food.Description = normalizeDescription(in.Description)
	food.Nutrition = in.Nutrition
	if err := food.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFood, err)
	}

	if err := s.foods.Save(ctx, food); err != nil {
		return nil, notFound(err, id)
	}
	s.log.Info("food updated", zap.Int64("food_id", id))
	s.bus.Emit(ctx, models.FoodUpdated, *food)
	return food, nil
}

// UpdatePartialFood changes only the fields present in patch.
func (s *NutritionService) UpdatePartialFood(ctx context.Context, id int64, patch FoodPatch) (*models.Food, error) {
	food, err := s.foods.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	if patch.Empty() {
		return food, nil
	}

	patch.Apply(food)
	food.Name = strings.TrimSpace(food.Name)
	if err := food.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFood, err)
	}

	if err := s.foods.Save(ctx, food); err != nil {
		return nil, notFound(err, id)
	}
	s.log.Info("food patched", zap.Int64("food_id", id))
	s.bus.Emit(ctx, models.FoodPatched, *food)
	return food, nil
}

func (s *NutritionService) DeleteFood(ctx context.Context, id int64) error {
	food, err := s.foods.FindByID(ctx, id)
	if err != nil {
		return notFound(err, id)
	}
	if err := s.foods.Delete(ctx, id); err != nil {
		return notFound(err, id)
	}
	s.log.Info("food deleted", zap.Int64("food_id", id))
	s.bus.Emit(ctx, models.FoodDeleted, *food)
	return nil
}

func (s *NutritionService) AnalyzeFood(ctx context.Context, id int64) (*utils.Assessment, error) {
	food, err := s.GetFood(ctx, id)
	if err != nil {
		return nil, err
	}
	a := utils.AssessFood(food)
	return &a, nil
}

// AttachImage uploads a base64 data URL and stores the resulting URL on the food.
func (s *NutritionService) AttachImage(ctx context.Context, id int64, dataURL string) (*models.Food, error) {
	food, err := s.foods.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	if s.images == nil {
		return nil, ErrStorageDisabled
	}

	contentType, ext, data, err := utils.DecodeDataURL(dataURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFood, err)
	}

	name := fmt.Sprintf("food-%d-%d%s", id, s.now().UnixNano(), ext)
	url, err := s.images.Upload(ctx, name, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("upload image for food %d: %w", id, err)
	}

	food.ImageURL = url
	if err := s.foods.Save(ctx, food); err != nil {
		return nil, notFound(err, id)
	}
	s.log.Info("food image attached", zap.Int64("food_id", id), zap.String("url", url))
	s.bus.Emit(ctx, models.FoodImage, *food)
	return food, nil
}

// History lists recorded changes of food id, newest first. It also works for
// foods that have since been deleted.
func (s *NutritionService) History(ctx context.Context, id int64, limit int) ([]models.FoodEvent, error) {
	if s.events == nil {
		return []models.FoodEvent{}, nil
	}
	return s.events.ListByFood(ctx, id, limit)
}

func notFound(err error, id int64) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: id %d", ErrFoodNotFound, id)
	}
	return err
}

func normalizeDescription(d *string) *string {
	if d == nil || strings.TrimSpace(*d) == "" {
		return nil
	}
	return models.StringPtr(*d)
}
