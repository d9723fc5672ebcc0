package export

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/identity"
	"github.com/linkspace/linkspace/pkg/linkspace/models"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
	"github.com/linkspace/linkspace/pkg/linkspace/workspace"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (store.Store, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	st := store.NewGormStore(db)

	cfg := &config.Config{
		Environment:     "testing",
		AllowedDomains:  []string{"example.com"},
		APIPathPrefixes: []string{"/export"},
		CookieMaxAge:    365 * 24 * time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := gin.New()
	app := r.Group("/",
		identity.NewResolver(cfg, log).Middleware(),
		workspace.NewResolver(st, cfg, log).Middleware(),
	)
	NewHandler(st, cfg, log).RegisterRoutes(app)
	return st, r
}

func TestExportReturnsOwnerRecordsInSpace(t *testing.T) {
	st, router := setupTest(t)

	space := models.Space{Name: "Default", Domain: "example.com", Owner: "o"}
	if err := st.CreateSpace(&space); err != nil {
		t.Fatalf("Failed to seed space: %v", err)
	}
	for _, short := range []string{"aaaa", "bbbb"} {
		link := models.Link{Owner: "o", Domain: "example.com", SpaceID: space.ID, Short: short, Full: "https://example.org", Alias: []string{}}
		if err := st.CreateLink(&link); err != nil {
			t.Fatalf("Failed to seed link: %v", err)
		}
	}
	foreign := models.Link{Owner: "someone-else", Domain: "example.com", Short: "cccc", Full: "https://example.org"}
	if err := st.CreateLink(&foreign); err != nil {
		t.Fatalf("Failed to seed link: %v", err)
	}

	// /export is a configured API prefix, so the cookie identity is
	// used as-is and no redirect fires.
	req, _ := http.NewRequest("GET", "/export", nil)
	req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "o"})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out []ExportedLink
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode export: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Expected 2 exported records, got %d", len(out))
	}
	for _, rec := range out {
		if rec.Short == "" || rec.Full == "" || rec.Domain == "" || rec.CreatedAt == "" {
			t.Errorf("Incomplete export record: %+v", rec)
		}
		if rec.Alias == nil {
			t.Errorf("Expected alias to serialize as an array, got null for %q", rec.Short)
		}
	}
}

func TestExportEmptyOwner(t *testing.T) {
	_, router := setupTest(t)

	req, _ := http.NewRequest("GET", "/export", nil)
	req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "nobody"})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "[]" {
		t.Errorf("Expected empty array, got %s", body)
	}
}
