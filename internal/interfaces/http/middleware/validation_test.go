package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storageRunBody struct {
	ProfileID string `json:"profile_id" binding:"required,uuid"`
	Key       string `json:"key" binding:"required,max=8"`
}

type historyQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=completed failed"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
}

func TestValidationDetails_JSONNames(t *testing.T) {
	SetupValidator()

	var details []dto.ValidationDetail
	router := gin.New()
	router.POST("/run", func(c *gin.Context) {
		var req storageRunBody
		err := c.ShouldBindJSON(&req)
		details = ValidationDetails(err)
		c.Status(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(`{"profile_id":"nope","key":"far-too-long-key"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, details, 2)
	assert.Equal(t, dto.ValidationDetail{Field: "profile_id", Message: "Invalid UUID format"}, details[0])
	assert.Equal(t, dto.ValidationDetail{Field: "key", Message: "Must be at most 8 characters"}, details[1])
}

func TestValidationDetails_FormNames(t *testing.T) {
	SetupValidator()

	var details []dto.ValidationDetail
	router := gin.New()
	router.GET("/history", func(c *gin.Context) {
		var req historyQuery
		details = ValidationDetails(c.ShouldBindQuery(&req))
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/history?status=lost&page=0", nil))

	require.Len(t, details, 1)
	assert.Equal(t, "status", details[0].Field)
	assert.Equal(t, "Must be one of: completed failed", details[0].Message)
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(errors.New("unexpected EOF")))
	assert.Nil(t, ValidationDetails(nil))
}
