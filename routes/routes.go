package routes

import (
	"nutrition/controllers"
	"nutrition/middlewares"
	"nutrition/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Deps struct {
	DB             *gorm.DB
	Nutrition      *services.NutritionService
	Hub            *services.RealtimeHub
	Log            *zap.Logger
	JWTSecret      string
	RateLimit      rate.Limit
	RateLimitBurst int
}

func SetupRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.RateLimit <= 0 {
		d.RateLimit = 100
	}
	if d.RateLimitBurst <= 0 {
		d.RateLimitBurst = 200
	}

	r := gin.New()
	r.Use(
		middlewares.Metrics(),
		middlewares.RequestID(),
		middlewares.Recovery(d.Log),
		middlewares.Logger(d.Log),
	)

	// System endpoints (no rate limiting)
	health := controllers.NewHealthController(d.DB)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	food := controllers.NewNutritionController(d.Nutrition)
	rt := controllers.NewRealtimeController(d.Hub, d.Log)

	api := r.Group("/api/nutrition")
	api.Use(middlewares.RateLimit(d.RateLimit, d.RateLimitBurst))
	{
		api.GET("/get-food/:id", food.GetFood)
		api.GET("/list-foods", food.ListFoods)
		api.GET("/food-analysis/:id", food.AnalyzeFood)
		api.GET("/food-history/:id", food.FoodHistory)
		api.GET("/events", rt.FoodEventsWS)
	}

	// Mutations require a bearer token when a JWT secret is configured
	write := api.Group("")
	write.Use(middlewares.AuthMiddleware(d.JWTSecret))
	{
		write.POST("/create-new-food", food.CreateFood)
		write.PUT("/update-existing-food/:id", food.UpdateFood)
		write.PATCH("/update-partial-food/:id", food.UpdatePartialFood)
		write.DELETE("/delete-food/:id", food.DeleteFood)
		write.PUT("/upload-food-image/:id", food.UploadFoodImage)
	}

	return r
}
