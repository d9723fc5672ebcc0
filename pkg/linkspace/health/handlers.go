// Package health reports process and storage status.
package health

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
)

// Handler handles health-check requests
type Handler struct {
	st      store.Store
	started time.Time
}

// NewHandler creates a new health handler
func NewHandler(st store.Store) *Handler {
	return &Handler{st: st, started: time.Now()}
}

func (h *Handler) backendName() string {
	if h.st.SupportsSpaces() {
		return "primary"
	}
	return "fallback"
}

// Check is the basic health check
func (h *Handler) Check(c *gin.Context) {
	status := "ok"
	storage := "connected"
	code := http.StatusOK
	if err := h.st.Ping(); err != nil {
		status = "degraded"
		storage = "disconnected"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"backend": h.backendName(),
		"storage": storage,
	})
}

// Detailed adds Go memory statistics to the basic check
func (h *Handler) Detailed(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	storage := "connected"
	if err := h.st.Ping(); err != nil {
		storage = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"backend": h.backendName(),
		"storage": storage,
		"memory": gin.H{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"goroutines":     runtime.NumGoroutine(),
		},
	})
}

// RegisterRoutes registers health routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Check)
	rg.GET("/detailed", h.Detailed)
}
