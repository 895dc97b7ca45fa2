package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"nutrition/models"
	"nutrition/repositories"
	"nutrition/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type NutritionController struct {
	Svc *services.NutritionService
}

func NewNutritionController(svc *services.NutritionService) *NutritionController {
	return &NutritionController{Svc: svc}
}

// GET /api/nutrition/get-food/:id
func (h *NutritionController) GetFood(c *gin.Context) {
	id, ok := foodID(c)
	if !ok {
		return
	}
	food, err := h.Svc.GetFood(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, food)
}

// GET /api/nutrition/list-foods?page=1&size=20&name=egg
func (h *NutritionController) ListFoods(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		badRequest(c, "invalid page")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(repositories.DefaultPageSize)))
	if err != nil {
		badRequest(c, "invalid size")
		return
	}

	out, err := h.Svc.ListFoods(c.Request.Context(), repositories.ListQuery{
		Page: page,
		Size: size,
		Name: c.Query("name"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/nutrition/create-new-food
func (h *NutritionController) CreateFood(c *gin.Context) {
	var in models.Food
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	food, err := h.Svc.CreateFood(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, food)
}

// PUT /api/nutrition/update-existing-food/:id
func (h *NutritionController) UpdateFood(c *gin.Context) {
	id, ok := foodID(c)
	if !ok {
		return
	}
	var in models.Food
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	food, err := h.Svc.UpdateFood(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, food)
}

// partialFoodForm mirrors the dotted parameter names clients send,
// e.g. nutrition.calories=220.
type partialFoodForm struct {
	Name         *string  `form:"name"`
	Description  *string  `form:"description"`
	Calories     *float64 `form:"nutrition.calories"`
	Carbohydrate *float64 `form:"nutrition.carbohydrate"`
	Fat          *float64 `form:"nutrition.fat"`
	Protein      *float64 `form:"nutrition.protein"`
	ServingSize  *string  `form:"nutrition.servingSize"`
}

type partialFoodJSON struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Nutrition   *struct {
		Calories     *float64 `json:"calories"`
		Carbohydrate *float64 `json:"carbohydrate"`
		Fat          *float64 `json:"fat"`
		Protein      *float64 `json:"protein"`
		ServingSize  *string  `json:"servingSize"`
	} `json:"nutrition"`
}

func (f partialFoodJSON) form() partialFoodForm {
	out := partialFoodForm{Name: f.Name, Description: f.Description}
	if n := f.Nutrition; n != nil {
		out.Calories = n.Calories
		out.Carbohydrate = n.Carbohydrate
		out.Fat = n.Fat
		out.Protein = n.Protein
		out.ServingSize = n.ServingSize
	}
	return out
}

func pick[T any](name string, body, query *T) (*T, error) {
	if body != nil && query != nil {
		return nil, fmt.Errorf("%s given in both body and query", name)
	}
	if body != nil {
		return body, nil
	}
	return query, nil
}

// merge combines body fields with query fields. A field set in both is an error.
func (f partialFoodForm) merge(q partialFoodForm) (partialFoodForm, error) {
	var out partialFoodForm
	var err error
	if out.Name, err = pick("name", f.Name, q.Name); err != nil {
		return out, err
	}
	if out.Description, err = pick("description", f.Description, q.Description); err != nil {
		return out, err
	}
	if out.Calories, err = pick("nutrition.calories", f.Calories, q.Calories); err != nil {
		return out, err
	}
	if out.Carbohydrate, err = pick("nutrition.carbohydrate", f.Carbohydrate, q.Carbohydrate); err != nil {
		return out, err
	}
	if out.Fat, err = pick("nutrition.fat", f.Fat, q.Fat); err != nil {
		return out, err
	}
	if out.Protein, err = pick("nutrition.protein", f.Protein, q.Protein); err != nil {
		return out, err
	}
	if out.ServingSize, err = pick("nutrition.servingSize", f.ServingSize, q.ServingSize); err != nil {
		return out, err
	}
	return out, nil
}

func (f partialFoodForm) patch() (services.FoodPatch, error) {
	p := services.FoodPatch{
		Name:         f.Name,
		Description:  f.Description,
		Calories:     f.Calories,
		Carbohydrate: f.Carbohydrate,
		Fat:          f.Fat,
		Protein:      f.Protein,
	}
	if f.ServingSize != nil {
		unit, err := models.ParseServingSize(*f.ServingSize)
		if err != nil {
			return p, err
		}
		p.ServingSize = &unit
	}
	return p, nil
}

// PATCH /api/nutrition/update-partial-food/:id
// Fields come from query/form parameters; a JSON body with the same shape as
// Food is accepted as well and combined with the query parameters.
func (h *NutritionController) UpdatePartialFood(c *gin.Context) {
	id, ok := foodID(c)
	if !ok {
		return
	}

	var form partialFoodForm
	if c.ContentType() == binding.MIMEJSON && c.Request.ContentLength > 0 {
		var body partialFoodJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}
		var query partialFoodForm
		if err := c.ShouldBindQuery(&query); err != nil {
			badRequest(c, err.Error())
			return
		}
		merged, err := body.form().merge(query)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		form = merged
	} else if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		badRequest(c, err.Error())
		return
	}

	patch, err := form.patch()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	food, err := h.Svc.UpdatePartialFood(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, food)
}

// DELETE /api/nutrition/delete-food/:id
func (h *NutritionController) DeleteFood(c *gin.Context) {
	id, ok := foodID(c)
	if !ok {
		return
	}
	if err := h.Svc.DeleteFood(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/nutrition/food-analysis/:id
func (h *NutritionController) AnalyzeFood(c *gin.Context) {
	id, ok := foodID(c)
	if !ok {
		return
	}
	out, err := h.Svc.AnalyzeFood(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/nutrition/food-history/:id?limit=20
func (h *NutritionController) FoodHistory(c *gin.Context) {
	id, ok := foodID(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(repositories.DefaultHistoryLimit)))
	if err != nil {
		badRequest(c, "invalid limit")
		return
	}
	events, err := h.Svc.History(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

type uploadImageRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// PUT /api/nutrition/upload-food-image/:id  { "image_base64": "data:image/png;base64,..." }
func (h *NutritionController) UploadFoodImage(c *gin.Context) {
	id, ok := foodID(c)
	if !ok {
		return
	}
	var req uploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	food, err := h.Svc.AttachImage(c.Request.Context(), id, req.ImageBase64)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, food)
}
