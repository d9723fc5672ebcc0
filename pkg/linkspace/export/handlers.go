// Package export serves the owner's records as a JSON document for
// backup and migration.
package export

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/identity"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
	"github.com/linkspace/linkspace/pkg/linkspace/workspace"
)

// Handler handles export requests
type Handler struct {
	st  store.Store
	cfg *config.Config
	log *slog.Logger
}

// NewHandler creates a new export handler
func NewHandler(st store.Store, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{st: st, cfg: cfg, log: log}
}

// ExportedLink is one record in the export document.
type ExportedLink struct {
	Full      string   `json:"full"`
	Short     string   `json:"short"`
	Alias     []string `json:"alias"`
	Domain    string   `json:"domain"`
	Clicks    uint     `json:"clicks"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Export returns every record of the resolved owner in the resolved
// space. The response is what the export dialog offers for download.
func (h *Handler) Export(c *gin.Context) {
	owner, ok := identity.GetOwner(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}
	filter := store.LinkFilter{Owner: owner}
	if space, ok := workspace.GetSpace(c); ok {
		filter.SpaceID = space.ID
	}

	links, err := h.st.FindLinks(filter)
	if err != nil {
		h.log.Error("export failed", "owner", owner, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export links"})
		return
	}

	out := make([]ExportedLink, len(links))
	for i, l := range links {
		alias := l.Alias
		if alias == nil {
			alias = []string{}
		}
		out[i] = ExportedLink{
			Full:      l.Full,
			Short:     l.Short,
			Alias:     alias,
			Domain:    l.Domain,
			Clicks:    l.Clicks,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: l.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, out)
}

// RegisterRoutes registers export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export", h.Export)
}
