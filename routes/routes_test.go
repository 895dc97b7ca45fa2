package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"nutrition/config"
	"nutrition/models"
	"nutrition/repositories"
	"nutrition/services"
	"nutrition/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	foods  repositories.FoodRepository
	hub    *services.RealtimeHub
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	db, err := config.OpenDB(config.DBConfig{Driver: config.DriverSQLite, SQLitePath: "file::memory:"}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	hub := services.NewRealtimeHub(nil)
	t.Cleanup(hub.Close)

	foods := repositories.NewFoodRepository(db)
	events := repositories.NewEventRepository(db)
	svc := services.NewNutritionService(foods,
		services.WithEventHistory(events),
		services.WithEventBus(services.NewEventBus(events, hub, nil)),
	)

	return &testServer{
		router: SetupRouter(Deps{DB: db, Nutrition: svc, Hub: hub, JWTSecret: secret}),
		foods:  foods,
		hub:    hub,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(t *testing.T, f *models.Food) {
	t.Helper()
	require.NoError(t, s.foods.Create(context.Background(), f))
}

func egg() *models.Food {
	return &models.Food{
		ID:          1,
		Name:        "egg",
		Description: models.StringPtr("my favourite"),
		Nutrition: models.Nutrition{
			Calories:     200,
			Carbohydrate: 55,
			Fat:          15,
			Protein:      25,
			ServingSize:  models.Gram,
		},
	}
}

func decodeFood(t *testing.T, w *httptest.ResponseRecorder) models.Food {
	t.Helper()
	var f models.Food
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f), w.Body.String())
	return f
}

func TestGetFoodByID(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	w := s.do(t, http.MethodGet, "/api/nutrition/get-food/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "egg", body["name"])
	assert.Equal(t, "my favourite", body["description"])
	nutrition := body["nutrition"].(map[string]any)
	assert.Equal(t, float64(200), nutrition["calories"])
	assert.Equal(t, float64(55), nutrition["carbohydrate"])
	assert.Equal(t, float64(15), nutrition["fat"])
	assert.Equal(t, float64(25), nutrition["protein"])
	assert.Equal(t, "GRAM", nutrition["servingSize"])
}

func TestGetFoodNotFound(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/api/nutrition/get-food/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "food not found")
	assert.NotEmpty(t, body["request_id"])

	w = s.do(t, http.MethodGet, "/api/nutrition/get-food/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateFood(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/api/nutrition/create-new-food", egg())
	require.Equal(t, http.StatusCreated, w.Code)

	got := decodeFood(t, w)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "egg", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, "my favourite", *got.Description)
	assert.Equal(t, egg().Nutrition, got.Nutrition)

	w = s.do(t, http.MethodPost, "/api/nutrition/create-new-food", egg())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateFoodValidation(t *testing.T) {
	s := newTestServer(t, "")

	tests := map[string]string{
		"blank name":       `{"name":"  ","nutrition":{"calories":1,"servingSize":"GRAM"}}`,
		"negative fat":     `{"name":"egg","nutrition":{"fat":-1,"servingSize":"GRAM"}}`,
		"unknown unit":     `{"name":"egg","nutrition":{"servingSize":"BUCKET"}}`,
		"malformed json":   `{"name":`,
		"missing nutrient": `{"name":"egg"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/nutrition/create-new-food", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestUpdateFood(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	update := &models.Food{
		ID:          99,
		Name:        "organic-egg",
		Description: models.StringPtr("free range"),
		Nutrition: models.Nutrition{
			Calories:     220,
			Carbohydrate: 50,
			Fat:          12,
			Protein:      30,
			ServingSize:  models.Piece,
		},
	}
	w := s.do(t, http.MethodPut, "/api/nutrition/update-existing-food/1", update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeFood(t, w)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "organic-egg", got.Name)
	assert.Equal(t, update.Nutrition, got.Nutrition)

	got = decodeFood(t, s.do(t, http.MethodGet, "/api/nutrition/get-food/1", nil))
	assert.Equal(t, "organic-egg", got.Name)
	assert.Equal(t, "free range", *got.Description)
	assert.Equal(t, models.Piece, got.Nutrition.ServingSize)

	w = s.do(t, http.MethodPut, "/api/nutrition/update-existing-food/7", update)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePartialFoodFromQuery(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	w := s.do(t, http.MethodPatch,
		"/api/nutrition/update-partial-food/1?name=organic-egg&nutrition.calories=220&nutrition.carbohydrate=50", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeFood(t, w)
	assert.Equal(t, "organic-egg", got.Name)
	assert.Equal(t, 220.0, got.Nutrition.Calories)
	assert.Equal(t, 50.0, got.Nutrition.Carbohydrate)
	assert.Equal(t, 15.0, got.Nutrition.Fat)
	assert.Equal(t, 25.0, got.Nutrition.Protein)
	assert.Equal(t, models.Gram, got.Nutrition.ServingSize)
	require.NotNil(t, got.Description)
	assert.Equal(t, "my favourite", *got.Description)
}

func TestUpdatePartialFoodFromFormBody(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	form := url.Values{}
	form.Set("name", "organic-egg")
	form.Set("nutrition.calories", "220")
	form.Set("nutrition.carbohydrate", "50")
	req := httptest.NewRequest(http.MethodPatch, "/api/nutrition/update-partial-food/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeFood(t, s.do(t, http.MethodGet, "/api/nutrition/get-food/1", nil))
	assert.Equal(t, "organic-egg", got.Name)
	assert.Equal(t, 220.0, got.Nutrition.Calories)
	assert.Equal(t, 50.0, got.Nutrition.Carbohydrate)
	assert.Equal(t, 15.0, got.Nutrition.Fat)
	assert.Equal(t, 25.0, got.Nutrition.Protein)
	assert.Equal(t, models.Gram, got.Nutrition.ServingSize)
	require.NotNil(t, got.Description)
	assert.Equal(t, "my favourite", *got.Description)
}

func TestUpdatePartialFoodBodyAndQuery(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	w := s.do(t, http.MethodPatch, "/api/nutrition/update-partial-food/1?name=organic-egg",
		map[string]any{"nutrition": map[string]any{"fat": 3}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeFood(t, w)
	assert.Equal(t, "organic-egg", got.Name)
	assert.Equal(t, 3.0, got.Nutrition.Fat)
	assert.Equal(t, 200.0, got.Nutrition.Calories)

	w = s.do(t, http.MethodPatch, "/api/nutrition/update-partial-food/1?name=boiled-egg",
		map[string]any{"name": "fried-egg"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name given in both body and query")
	assert.Equal(t, "organic-egg", decodeFood(t, s.do(t, http.MethodGet, "/api/nutrition/get-food/1", nil)).Name)
}

func TestUpdatePartialFoodFromJSONBody(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	w := s.do(t, http.MethodPatch, "/api/nutrition/update-partial-food/1",
		map[string]any{"nutrition": map[string]any{"fat": 3, "servingSize": "cup"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decodeFood(t, w)
	assert.Equal(t, "egg", got.Name)
	assert.Equal(t, 3.0, got.Nutrition.Fat)
	assert.Equal(t, models.Cup, got.Nutrition.ServingSize)
	assert.Equal(t, 200.0, got.Nutrition.Calories)

	w = s.do(t, http.MethodPatch, "/api/nutrition/update-partial-food/1?nutrition.servingSize=BUCKET", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/nutrition/update-partial-food/1?nutrition.protein=-4", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteFood(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	w := s.do(t, http.MethodDelete, "/api/nutrition/delete-food/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/nutrition/get-food/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/nutrition/delete-food/1", nil).Code)
}

func TestListFoods(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())
	s.seed(t, &models.Food{Name: "Egg white", Nutrition: models.Nutrition{Protein: 11, ServingSize: models.Gram}})
	s.seed(t, &models.Food{Name: "rice", Nutrition: models.Nutrition{Carbohydrate: 28, ServingSize: models.Gram}})

	w := s.do(t, http.MethodGet, "/api/nutrition/list-foods?name=EGG&size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page services.FoodPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Size)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "egg", page.Items[0].Name)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/nutrition/list-foods?page=x", nil).Code)
}

func TestFoodAnalysisAndHistory(t *testing.T) {
	s := newTestServer(t, "")

	butter := &models.Food{ID: 5, Name: "butter", Nutrition: models.Nutrition{Calories: 717, Fat: 81, Protein: 1, ServingSize: models.Gram}}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/nutrition/create-new-food", butter).Code)
	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodPatch, "/api/nutrition/update-partial-food/5?name=salted-butter", nil).Code)

	w := s.do(t, http.MethodGet, "/api/nutrition/food-analysis/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var a utils.Assessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Greater(t, a.EnergyShare.Fat, 35.0)
	require.NotEmpty(t, a.Warnings)

	w = s.do(t, http.MethodGet, "/api/nutrition/food-history/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []models.FoodEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, models.FoodPatched, events[0].Kind)
	assert.Equal(t, models.FoodCreated, events[1].Kind)
}

func TestUploadImageWithoutStorage(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, egg())

	w := s.do(t, http.MethodPut, "/api/nutrition/upload-food-image/1",
		map[string]string{"image_base64": "data:image/png;base64,aGVsbG8="})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(t, http.MethodPut, "/api/nutrition/upload-food-image/9",
		map[string]string{"image_base64": "data:image/png;base64,aGVsbG8="})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateFoodAfterClientID(t *testing.T) {
	s := newTestServer(t, "")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/nutrition/create-new-food", egg()).Code)

	rice := &models.Food{Name: "rice", Nutrition: models.Nutrition{Carbohydrate: 28, ServingSize: models.Gram}}
	w := s.do(t, http.MethodPost, "/api/nutrition/create-new-food", rice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(2), decodeFood(t, w).ID)
}

func TestWriteRoutesRequireToken(t *testing.T) {
	const secret = "route-secret"
	s := newTestServer(t, secret)

	w := s.do(t, http.MethodPost, "/api/nutrition/create-new-food", egg())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateJWT(secret, "admin", time.Hour)
	require.NoError(t, err)
	w = s.do(t, http.MethodPost, "/api/nutrition/create-new-food", egg(), "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, w.Code)

	// reads stay open
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/nutrition/get-food/1", nil).Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ready", nil).Code)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nutrition_http_requests_total")
}

func TestFoodEventsWebsocket(t *testing.T) {
	s := newTestServer(t, "")
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/nutrition/events?food_id=1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	other := &models.Food{ID: 2, Name: "rice", Nutrition: models.Nutrition{Carbohydrate: 28, ServingSize: models.Gram}}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/nutrition/create-new-food", other).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/nutrition/create-new-food", egg()).Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg services.EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, models.FoodCreated, msg.Kind)
	assert.Equal(t, int64(1), msg.FoodID)
	assert.Equal(t, "egg", msg.Food.Name)
}
