package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nutrition/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the requested key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateID is returned when a create reuses an existing primary key.
	ErrDuplicateID = errors.New("duplicate id")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery selects one page of foods. Page is 1-based.
type ListQuery struct {
	Page int
	Size int
	Name string
}

// Normalize clamps paging values into the supported range.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.Size <= 0:
		q.Size = DefaultPageSize
	case q.Size > MaxPageSize:
		q.Size = MaxPageSize
	}
	q.Name = strings.TrimSpace(q.Name)
	return q
}

// FoodRepository is a key-based store of foods.
type FoodRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Food, error)
	Exists(ctx context.Context, id int64) (bool, error)
	FindAll(ctx context.Context, q ListQuery) ([]models.Food, int64, error)
	Create(ctx context.Context, food *models.Food) error
	Save(ctx context.Context, food *models.Food) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

type gormFoodRepository struct {
	db *gorm.DB
}

func NewFoodRepository(db *gorm.DB) FoodRepository {
	return &gormFoodRepository{db: db}
}

func (r *gormFoodRepository) FindByID(ctx context.Context, id int64) (*models.Food, error) {
	var food models.Food
	err := r.db.WithContext(ctx).First(&food, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find food %d: %w", id, err)
	}
	return &food, nil
}

func (r *gormFoodRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Food{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count food %d: %w", id, err)
	}
	return n > 0, nil
}

func (r *gormFoodRepository) FindAll(ctx context.Context, q ListQuery) ([]models.Food, int64, error) {
	q = q.Normalize()

	tx := r.db.WithContext(ctx).Model(&models.Food{})
	if q.Name != "" {
		tx = tx.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(q.Name))+"%")
	}
	// shared by Count and Find below
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count foods: %w", err)
	}

	foods := make([]models.Food, 0, q.Size)
	err := tx.
		Order("id ASC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&foods).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list foods: %w", err)
	}
	return foods, total, nil
}

// Create inserts food. A non-zero id is kept; on postgres the id sequence is
// then moved past it so later generated ids do not collide.
func (r *gormFoodRepository) Create(ctx context.Context, food *models.Food) error {
	explicitID := food.ID != 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(food).Error; err != nil {
			return err
		}
		if explicitID && tx.Dialector.Name() == "postgres" {
			return tx.Exec(syncFoodIDSequenceSQL).Error
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: food %d", ErrDuplicateID, food.ID)
	}
	if err != nil {
		return fmt.Errorf("create food: %w", err)
	}
	return nil
}

const syncFoodIDSequenceSQL = `SELECT setval(pg_get_serial_sequence('foods', 'id'), (SELECT MAX(id) FROM foods))`

func (r *gormFoodRepository) Save(ctx context.Context, food *models.Food) error {
	// Select("*") so zero values (e.g. fat=0, nil description) are written too.
	res := r.db.WithContext(ctx).Model(food).Select("*").Omit("created_at").Updates(food)
	if res.Error != nil {
		return fmt.Errorf("save food %d: %w", food.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormFoodRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&models.Food{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete food %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormFoodRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Food{}).Error
	if err != nil {
		return fmt.Errorf("delete all foods: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
