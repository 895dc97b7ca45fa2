package services

import (
	"context"
	"testing"

	"nutrition/config"
	"nutrition/models"
	"nutrition/repositories"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDB(config.DBConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: "file::memory:",
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

type fakeImageStore struct {
	name        string
	contentType string
	data        []byte
	err         error
}

func (f *fakeImageStore) Upload(_ context.Context, name, contentType string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.name, f.contentType, f.data = name, contentType, data
	return "https://cdn.example.com/food-images/" + name, nil
}

type recordingPublisher struct {
	events []models.FoodEvent
}

func (r *recordingPublisher) Publish(ev models.FoodEvent) { r.events = append(r.events, ev) }

type fixture struct {
	svc    *NutritionService
	pub    *recordingPublisher
	images *fakeImageStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	events := repositories.NewEventRepository(db)
	f := &fixture{pub: &recordingPublisher{}, images: &fakeImageStore{}}
	f.svc = NewNutritionService(repositories.NewFoodRepository(db),
		WithEventHistory(events),
		WithEventBus(NewEventBus(events, f.pub, nil)),
		WithImageStore(f.images),
	)
	return f
}

func egg() *models.Food {
	return &models.Food{
		ID:   1,
		Name: "egg",
		Nutrition: models.Nutrition{
			Calories:     200,
			Carbohydrate: 55,
			Fat:          15,
			Protein:      25,
			ServingSize:  models.Gram,
		},
		Description: models.StringPtr("my favourite"),
	}
}
