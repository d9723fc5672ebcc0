// Package spaces implements workspace CRUD. Spaces only exist on the
// primary backend; in fallback mode these endpoints report the
// workspace feature as unavailable.
package spaces

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/identity"
	"github.com/linkspace/linkspace/pkg/linkspace/models"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
	"github.com/linkspace/linkspace/pkg/linkspace/workspace"
)

// Handler handles space-related requests
type Handler struct {
	st  store.Store
	cfg *config.Config
	log *slog.Logger
}

// NewHandler creates a new spaces handler
func NewHandler(st store.Store, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{st: st, cfg: cfg, log: log}
}

// SpaceRequest represents the request to create or edit a space
type SpaceRequest struct {
	Name   string `form:"name" json:"name" binding:"required"`
	Domain string `form:"domain" json:"domain"`
}

// SpaceResponse represents a space in API responses
type SpaceResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	CreatedAt string `json:"created_at"`
}

func spaceToResponse(s models.Space) SpaceResponse {
	return SpaceResponse{
		ID:        s.ID,
		Name:      s.Name,
		Domain:    s.Domain,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) requireSpaces(c *gin.Context) (string, bool) {
	if !h.st.SupportsSpaces() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workspaces are unavailable on the current storage backend"})
		return "", false
	}
	owner, ok := identity.GetOwner(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return "", false
	}
	return owner, true
}

func (h *Handler) validateRequest(c *gin.Context) (*SpaceRequest, bool) {
	var req SpaceRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Space name is required"})
		return nil, false
	}
	if req.Domain == "" {
		req.Domain = h.cfg.DefaultDomain()
	}
	req.Domain = strings.ToLower(strings.TrimSpace(req.Domain))
	if !h.cfg.DomainAllowed(req.Domain) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Domain is not in the allowed list"})
		return nil, false
	}
	return &req, true
}

// List returns the owner's spaces, earliest first
func (h *Handler) List(c *gin.Context) {
	owner, ok := h.requireSpaces(c)
	if !ok {
		return
	}
	spaces, err := h.st.FindSpaces(owner)
	if err != nil {
		h.log.Error("failed to list spaces", "owner", owner, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch spaces"})
		return
	}
	responses := make([]SpaceResponse, len(spaces))
	for i, s := range spaces {
		responses[i] = spaceToResponse(s)
	}
	c.JSON(http.StatusOK, responses)
}

// Create creates a new space for the resolved owner
// @Summary Create a space
// @Accept json
// @Produce json
// @Param request body SpaceRequest true "Space details"
// @Success 201 {object} SpaceResponse
// @Failure 409 {object} map[string]string "Space name already in use"
// @Router /spaces [post]
func (h *Handler) Create(c *gin.Context) {
	owner, ok := h.requireSpaces(c)
	if !ok {
		return
	}
	req, ok := h.validateRequest(c)
	if !ok {
		return
	}

	space := models.Space{Name: req.Name, Domain: req.Domain, Owner: owner}
	if err := h.st.CreateSpace(&space); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "A space with this name already exists"})
			return
		}
		h.log.Error("failed to create space", "owner", owner, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create space"})
		return
	}
	c.JSON(http.StatusCreated, spaceToResponse(space))
}

// Edit renames a space or rebinds its domain
func (h *Handler) Edit(c *gin.Context) {
	owner, ok := h.requireSpaces(c)
	if !ok {
		return
	}
	req, ok := h.validateRequest(c)
	if !ok {
		return
	}

	id := c.Param("id")
	updated, err := h.st.UpdateSpace(id, owner, store.SpacePatch{Name: &req.Name, Domain: &req.Domain})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
			return
		}
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "A space with this name already exists"})
			return
		}
		h.log.Error("failed to update space", "owner", owner, "space", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update space"})
		return
	}
	c.JSON(http.StatusOK, spaceToResponse(*updated))
}

// Delete removes a space and cascades to all of its links
func (h *Handler) Delete(c *gin.Context) {
	owner, ok := h.requireSpaces(c)
	if !ok {
		return
	}

	id := c.Param("id")
	removed, err := h.st.DeleteSpace(id, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Space not found"})
			return
		}
		h.log.Error("failed to delete space", "owner", owner, "space", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete space"})
		return
	}

	// A cookie naming the deleted space would just be re-resolved,
	// but clearing it keeps the next resolution deterministic.
	if cookie, _ := c.Cookie(workspace.CookieName); cookie == id {
		c.SetCookie(workspace.CookieName, "", -1, "/", "", h.cfg.IsProduction(), true)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "links_removed": removed})
}

// RegisterRoutes registers space routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/spaces", h.List)
	rg.POST("/spaces", h.Create)
	rg.POST("/spaces/:id/edit", h.Edit)
	rg.POST("/spaces/:id/delete", h.Delete)
}
