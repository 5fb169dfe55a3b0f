package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"trip-counter-service/config"
	"trip-counter-service/database"
	"trip-counter-service/middleware"
	"trip-counter-service/models"
	"trip-counter-service/services"
	"trip-counter-service/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		Port:                   "8080",
		JWTAccessSecret:        "test-access-secret-0123456789abcdef",
		JWTRefreshSecret:       "test-refresh-secret-0123456789abcde",
		AccessTokenExpireHours: 1,
		Timezone:               "Asia/Taipei",
		ProvisionDays:          10,
		RetentionDays:          7,
	}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))
	database.DB = db

	store := services.NewCounterStore(db, services.CounterPolicy{})
	snapshotCache := services.NewSnapshotCache(store)
	registry := services.NewRegistry()
	availabilityGate := services.NewGate(snapshotCache, config.AppConfig.Timezone, 0)
	live := services.NewLive(store, snapshotCache, registry, availabilityGate, config.AppConfig.Timezone)
	Setup(live, store, snapshotCache, availabilityGate)

	router := gin.New()
	router.GET("/api/counters", GetDayCounters)
	router.GET("/api/availability", GetAvailability)
	router.POST("/api/availability", UpdateAvailability)
	router.POST("/api/auth/register", Register)
	router.POST("/api/auth/login", Login)

	admin := router.Group("/api")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleGuard("admin"))
	{
		admin.POST("/regions", AddRegion)
		admin.GET("/regions", GetAllRegions)
	}
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedDayCounter(t *testing.T, db *gorm.DB, area, slot, date string, value, max int) {
	t.Helper()
	region := models.Region{Area: area, MaxCount: max}
	if err := db.Where("area = ?", area).First(&region).Error; err != nil {
		require.NoError(t, db.Create(&region).Error)
	}
	require.NoError(t, db.Create(&models.RegionCounter{
		RegionID:        region.ID,
		CounterTime:     slot,
		Date:            date,
		CounterValue:    value,
		MaxCounterValue: max,
		State:           true,
	}).Error)
}

func TestGetDayCounters(t *testing.T) {
	router, db := setupHandlerTest(t)
	seedDayCounter(t, db, "North", "08:00", "2026-09-01", 2, 3)

	w := doJSON(t, router, http.MethodGet, "/api/counters?date=2026-09-01", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    []services.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "North", resp.Data[0].Area)
	assert.Equal(t, "2026/09/01", resp.Data[0].Date)

	// Missing date
	w = doJSON(t, router, http.MethodGet, "/api/counters?date=2030-01-01", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed date
	w = doJSON(t, router, http.MethodGet, "/api/counters?date=junk", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityToggle(t *testing.T) {
	router, _ := setupHandlerTest(t)

	// Gate starts closed until enabled
	w := doJSON(t, router, http.MethodGet, "/api/availability", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cacheEnabled": false}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/availability", map[string]bool{"enabled": true}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/availability", nil, "")
	assert.JSONEq(t, `{"cacheEnabled": true}`, w.Body.String())

	// Missing body
	w = doJSON(t, router, http.MethodPost, "/api/availability", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterLoginAndRoleGuard(t *testing.T) {
	router, _ := setupHandlerTest(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "boss",
		"password": "secret123",
		"role":     "admin",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "boss",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AccessToken)
	assert.Equal(t, "admin", resp.Data.Role)

	// Admin route accepts the token
	w = doJSON(t, router, http.MethodPost, "/api/regions", map[string]interface{}{
		"area":      "North",
		"max_count": 3,
	}, resp.Data.AccessToken)
	assert.Equal(t, http.StatusCreated, w.Code)

	// No token: rejected
	w = doJSON(t, router, http.MethodGet, "/api/regions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Non-admin token: forbidden
	w = doJSON(t, router, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "viewer",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	userToken, err := utils.GenerateAccessToken(2, "user")
	require.NoError(t, err)
	w = doJSON(t, router, http.MethodGet, "/api/regions", nil, userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Bad password
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "boss",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
