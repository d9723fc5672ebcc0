package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/models"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestRouter(st store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(st).RegisterRoutes(r.Group("/health"))
	return r
}

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthCheckPrimaryBackend(t *testing.T) {
	router := setupTestRouter(store.NewGormStore(openTestDB(t)))

	resp := get(router, "/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out["status"] != "ok" || out["backend"] != "primary" || out["storage"] != "connected" {
		t.Errorf("Unexpected health report: %v", out)
	}
}

func TestHealthCheckFallbackBackend(t *testing.T) {
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "urls.json"))
	if err != nil {
		t.Fatalf("Failed to open file store: %v", err)
	}
	router := setupTestRouter(st)

	resp := get(router, "/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var out map[string]string
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out["backend"] != "fallback" {
		t.Errorf("Expected fallback backend, got %v", out)
	}
}

func TestHealthCheckReportsDegradedStorage(t *testing.T) {
	db := openTestDB(t)
	router := setupTestRouter(store.NewGormStore(db))

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get raw connection: %v", err)
	}
	sqlDB.Close()

	resp := get(router, "/health")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", resp.Code)
	}
	var out map[string]string
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out["status"] != "degraded" || out["storage"] != "disconnected" {
		t.Errorf("Expected degraded report, got %v", out)
	}
}

func TestDetailedIncludesMemoryStats(t *testing.T) {
	router := setupTestRouter(store.NewGormStore(openTestDB(t)))

	resp := get(router, "/health/detailed")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var out struct {
		Status string `json:"status"`
		Memory struct {
			Goroutines int `json:"goroutines"`
		} `json:"memory"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out.Status != "ok" || out.Memory.Goroutines <= 0 {
		t.Errorf("Unexpected detailed report: %s", resp.Body.String())
	}
}
