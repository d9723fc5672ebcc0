package workspace

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/identity"
	"github.com/linkspace/linkspace/pkg/linkspace/models"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8080",
		Environment:    "testing",
		AllowedDomains: []string{"example.com", "go.example.com"},
		CookieMaxAge:   365 * 24 * time.Hour,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) store.Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return store.NewGormStore(db)
}

type probeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

func setupTestRouter(st store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	r := gin.New()
	r.Use(identity.NewResolver(cfg, testLogger()).Middleware())
	r.Use(NewResolver(st, cfg, testLogger()).Middleware())
	r.GET("/probe", func(c *gin.Context) {
		if space, ok := GetSpace(c); ok {
			c.JSON(http.StatusOK, probeResponse{ID: space.ID, Name: space.Name, Domain: space.Domain})
			return
		}
		c.JSON(http.StatusOK, probeResponse{})
	})
	return r
}

func probe(t *testing.T, router *gin.Engine, target string, cookies ...*http.Cookie) (probeResponse, *httptest.ResponseRecorder) {
	req, _ := http.NewRequest("GET", target, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out probeResponse
	json.Unmarshal(resp.Body.Bytes(), &out)
	return out, resp
}

func TestDefaultSpaceCreatedOnFirstContact(t *testing.T) {
	st := setupTestStore(t)
	router := setupTestRouter(st)

	out, resp := probe(t, router, "/probe?owner=fresh-owner")
	if out.Name != DefaultSpaceName {
		t.Errorf("Expected default space, got %q", out.Name)
	}
	if out.Domain != "example.com" {
		t.Errorf("Expected first allowed domain, got %q", out.Domain)
	}

	var cookieSynced bool
	for _, ck := range resp.Result().Cookies() {
		if ck.Name == CookieName && ck.Value == out.ID {
			cookieSynced = true
		}
	}
	if !cookieSynced {
		t.Error("Expected activeSpace cookie synced to resolved space")
	}

	spaces, err := st.FindSpaces("fresh-owner")
	if err != nil || len(spaces) != 1 {
		t.Fatalf("Expected exactly one space persisted, got %v (%v)", spaces, err)
	}
}

func TestEarliestSpaceAdoptedWithoutCandidate(t *testing.T) {
	st := setupTestStore(t)
	router := setupTestRouter(st)

	first := models.Space{Name: "First", Domain: "example.com", Owner: "o"}
	st.CreateSpace(&first)
	second := models.Space{Name: "Second", Domain: "example.com", Owner: "o"}
	st.CreateSpace(&second)

	out, _ := probe(t, router, "/probe?owner=o")
	if out.ID != first.ID {
		t.Errorf("Expected earliest-created space %q, got %q", first.ID, out.ID)
	}
}

func TestCandidateSpaceAdoptedFromQuery(t *testing.T) {
	st := setupTestStore(t)
	router := setupTestRouter(st)

	first := models.Space{Name: "First", Domain: "example.com", Owner: "o"}
	st.CreateSpace(&first)
	second := models.Space{Name: "Second", Domain: "go.example.com", Owner: "o"}
	st.CreateSpace(&second)

	out, _ := probe(t, router, "/probe?owner=o&space="+second.ID)
	if out.ID != second.ID {
		t.Errorf("Expected candidate space %q adopted, got %q", second.ID, out.ID)
	}
}

func TestCrossOwnerSpaceIsRejected(t *testing.T) {
	st := setupTestStore(t)
	router := setupTestRouter(st)

	theirs := models.Space{Name: "Theirs", Domain: "example.com", Owner: "someone-else"}
	st.CreateSpace(&theirs)

	out, _ := probe(t, router, "/probe?owner=me&space="+theirs.ID)
	if out.ID == theirs.ID {
		t.Fatal("Adopted a space belonging to another owner")
	}
	if out.Name != DefaultSpaceName {
		t.Errorf("Expected fallback to a fresh default space, got %q", out.Name)
	}
}

func TestMalformedCandidateIsIgnored(t *testing.T) {
	st := setupTestStore(t)
	router := setupTestRouter(st)

	mine := models.Space{Name: "Mine", Domain: "example.com", Owner: "o"}
	st.CreateSpace(&mine)

	out, _ := probe(t, router, "/probe?owner=o&space=not-a-uuid")
	if out.ID != mine.ID {
		t.Errorf("Expected owner's space despite malformed candidate, got %q", out.ID)
	}
}

func TestCandidateFromCookie(t *testing.T) {
	st := setupTestStore(t)
	router := setupTestRouter(st)

	first := models.Space{Name: "First", Domain: "example.com", Owner: "o"}
	st.CreateSpace(&first)
	second := models.Space{Name: "Second", Domain: "example.com", Owner: "o"}
	st.CreateSpace(&second)

	out, _ := probe(t, router, "/probe?owner=o", &http.Cookie{Name: CookieName, Value: second.ID})
	if out.ID != second.ID {
		t.Errorf("Expected cookie candidate adopted, got %q", out.ID)
	}
}

func TestFallbackStoreSkipsWorkspaceResolution(t *testing.T) {
	st, err := store.OpenFile(filepath.Join(t.TempDir(), "urls.json"))
	if err != nil {
		t.Fatalf("Failed to open file store: %v", err)
	}
	router := setupTestRouter(st)

	out, _ := probe(t, router, "/probe?owner=o")
	if out.ID != "" {
		t.Errorf("Expected no space in fallback mode, got %q", out.ID)
	}
}
