package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"nutrition/middlewares"
	"nutrition/services"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrFoodNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidFood):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrFoodExists):
		status = http.StatusConflict
	case errors.Is(err, services.ErrStorageDisabled):
		status = http.StatusServiceUnavailable
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "request_id": middlewares.GetRequestID(c)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "request_id": middlewares.GetRequestID(c)})
}

// foodID parses the :id path parameter; ids are positive.
func foodID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid food id")
		return 0, false
	}
	return id, true
}
