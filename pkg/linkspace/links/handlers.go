// Package links implements the link-allocation surface: listing,
// create-or-augment, editing, bulk deletion, and owner reassignment.
package links

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/identity"
	"github.com/linkspace/linkspace/pkg/linkspace/models"
	"github.com/linkspace/linkspace/pkg/linkspace/slug"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
	"github.com/linkspace/linkspace/pkg/linkspace/token"
	"github.com/linkspace/linkspace/pkg/linkspace/workspace"
)

// maxFullURLLength bounds destination URLs.
const maxFullURLLength = 2048

// Handler handles link-related requests
type Handler struct {
	st  store.Store
	cfg *config.Config
	log *slog.Logger
}

// NewHandler creates a new links handler
func NewHandler(st store.Store, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{st: st, cfg: cfg, log: log}
}

// CreateLinkRequest represents the request to create or augment a link
type CreateLinkRequest struct {
	FullURL      string `form:"fullUrl" json:"fullUrl" binding:"required"`
	CustomSuffix string `form:"customSuffix" json:"customSuffix"`
}

// EditLinkRequest represents the request to edit a link
type EditLinkRequest struct {
	FullURL  string `form:"fullUrl" json:"fullUrl" binding:"required"`
	Aliases  string `form:"aliases" json:"aliases"` // comma-separated
	NewShort string `form:"newShort" json:"newShort"`
}

// DeleteRequest represents the request to bulk-delete links
type DeleteRequest struct {
	Selected []string `form:"selected" json:"selected"`
	Short    string   `form:"short" json:"short"`
}

// ChangeOwnerRequest represents the request to reassign all records
type ChangeOwnerRequest struct {
	NewOwner string `form:"newOwner" json:"newOwner" binding:"required"`
}

// LinkResponse represents a link in API responses
type LinkResponse struct {
	ID        uint     `json:"id"`
	Short     string   `json:"short"`
	Full      string   `json:"full"`
	Alias     []string `json:"alias"`
	Domain    string   `json:"domain"`
	SpaceID   string   `json:"space_id,omitempty"`
	Clicks    uint     `json:"clicks"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func linkToResponse(link models.Link) LinkResponse {
	alias := link.Alias
	if alias == nil {
		alias = []string{}
	}
	return LinkResponse{
		ID:        link.ID,
		Short:     link.Short,
		Full:      link.Full,
		Alias:     alias,
		Domain:    link.Domain,
		SpaceID:   link.SpaceID,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: link.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// scope is the resolved (owner, space, domain) a request operates in.
// In fallback mode there is no space and the default domain applies.
type scope struct {
	owner   string
	spaceID string
	domain  string
}

func (h *Handler) requestScope(c *gin.Context) (scope, bool) {
	owner, ok := identity.GetOwner(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return scope{}, false
	}
	if space, ok := workspace.GetSpace(c); ok {
		return scope{owner: owner, spaceID: space.ID, domain: space.Domain}, true
	}
	if h.st.SupportsSpaces() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No active space"})
		return scope{}, false
	}
	return scope{owner: owner, domain: h.cfg.DefaultDomain()}, true
}

// validateFullURL checks that raw is an absolute http/https URL of
// bounded length. An unvalidated URL must never be persisted.
func validateFullURL(raw string) error {
	if raw == "" {
		return errors.New("URL is required")
	}
	if len(raw) > maxFullURLLength {
		return errors.New("URL exceeds maximum length of 2048 characters")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("URL must be absolute with an http or https scheme")
	}
	return nil
}

// tokenTaken reports whether tok is already a short token or alias of
// any record in the domain other than excludeID.
func (h *Handler) tokenTaken(domain, tok string, excludeID uint) (bool, error) {
	byShort, err := h.st.FindLinks(store.LinkFilter{Domain: domain, Short: tok})
	if err != nil {
		return false, err
	}
	byAlias, err := h.st.FindLinks(store.LinkFilter{Domain: domain, Alias: tok})
	if err != nil {
		return false, err
	}
	for _, l := range append(byShort, byAlias...) {
		if l.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (h *Handler) serverError(c *gin.Context, msg string, err error, attrs ...any) {
	h.log.Error(msg, append(attrs, "error", err)...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// List returns the resolved owner's links in the resolved space
// @Summary List links
// @Produce json
// @Success 200 {array} LinkResponse
// @Router / [get]
func (h *Handler) List(c *gin.Context) {
	sc, ok := h.requestScope(c)
	if !ok {
		return
	}
	links, err := h.st.FindLinks(store.LinkFilter{Owner: sc.owner, SpaceID: sc.spaceID})
	if err != nil {
		h.serverError(c, "Failed to fetch links", err, "owner", sc.owner)
		return
	}
	responses := make([]LinkResponse, len(links))
	for i, link := range links {
		responses[i] = linkToResponse(link)
	}
	c.JSON(http.StatusOK, responses)
}

// Create creates a new link or augments an existing one with an alias
// @Summary Create or augment a link
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link details"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Suffix already taken"
// @Router /shortUrls [post]
func (h *Handler) Create(c *gin.Context) {
	sc, ok := h.requestScope(c)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateFullURL(req.FullURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	suffix := strings.TrimSpace(req.CustomSuffix)
	if suffix != "" {
		if err := token.Validate(suffix); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	existing, err := h.st.FindLinks(store.LinkFilter{Owner: sc.owner, SpaceID: sc.spaceID, Full: req.FullURL})
	if err != nil {
		h.serverError(c, "Failed to look up existing link", err, "owner", sc.owner)
		return
	}
	if len(existing) > 0 {
		h.augment(c, sc, existing[0], suffix)
		return
	}

	short, err := slug.Allocate(func(candidate string) (bool, error) {
		return h.tokenTaken(sc.domain, candidate, 0)
	})
	if err != nil {
		h.serverError(c, "Failed to allocate slug", err, "domain", sc.domain)
		return
	}

	link := models.Link{
		Owner:   sc.owner,
		SpaceID: sc.spaceID,
		Domain:  sc.domain,
		Short:   short,
		Full:    req.FullURL,
		Alias:   []string{},
	}
	if suffix != "" {
		taken, err := h.tokenTaken(sc.domain, suffix, 0)
		if err != nil {
			h.serverError(c, "Failed to check suffix availability", err, "domain", sc.domain)
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "This suffix is already taken"})
			return
		}
		link.Alias = []string{suffix}
	}

	if err := h.st.CreateLink(&link); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "This slug is already taken"})
			return
		}
		h.serverError(c, "Failed to create link", err, "owner", sc.owner)
		return
	}
	c.JSON(http.StatusCreated, linkToResponse(link))
}

// augment appends suffix to an existing record's aliases. Resubmitting
// a suffix the record already carries is a no-op, not an error.
func (h *Handler) augment(c *gin.Context, sc scope, link models.Link, suffix string) {
	if suffix == "" || link.HasAlias(suffix) {
		c.JSON(http.StatusOK, linkToResponse(link))
		return
	}
	taken, err := h.tokenTaken(sc.domain, suffix, link.ID)
	if err != nil {
		h.serverError(c, "Failed to check suffix availability", err, "domain", sc.domain)
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "This suffix is already taken"})
		return
	}

	aliases := append(append([]string{}, link.Alias...), suffix)
	updated, err := h.st.UpdateLink(
		store.LinkFilter{Owner: sc.owner, SpaceID: sc.spaceID, Short: link.Short},
		store.LinkPatch{Alias: &aliases},
	)
	if err != nil {
		h.serverError(c, "Failed to update link", err, "short", link.Short)
		return
	}
	c.JSON(http.StatusOK, linkToResponse(*updated))
}

// Edit replaces a link's destination and alias list
// @Summary Edit a link
// @Accept json
// @Produce json
// @Param short path string true "Short token"
// @Param request body EditLinkRequest true "Updated link details"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} map[string]string "Link not found"
// @Failure 409 {object} map[string]string "Short token conflict"
// @Router /shortUrls/{short}/edit [post]
func (h *Handler) Edit(c *gin.Context) {
	sc, ok := h.requestScope(c)
	if !ok {
		return
	}
	short := c.Param("short")

	found, err := h.st.FindLinks(store.LinkFilter{Owner: sc.owner, SpaceID: sc.spaceID, Short: short})
	if err != nil {
		h.serverError(c, "Failed to fetch link", err, "short", short)
		return
	}
	if len(found) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
		return
	}
	link := found[0]

	var req EditLinkRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateFullURL(req.FullURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	aliases := []string{}
	for _, a := range strings.Split(req.Aliases, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if err := token.Validate(a); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !link.HasAlias(a) {
			taken, err := h.tokenTaken(sc.domain, a, link.ID)
			if err != nil {
				h.serverError(c, "Failed to check alias availability", err, "alias", a)
				return
			}
			if taken {
				c.JSON(http.StatusConflict, gin.H{"error": "Alias already taken: " + a})
				return
			}
		}
		aliases = append(aliases, a)
	}

	patch := store.LinkPatch{Full: &req.FullURL, Alias: &aliases}
	newShort := strings.TrimSpace(req.NewShort)
	if newShort != "" && newShort != link.Short {
		if err := token.Validate(newShort); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		taken, err := h.tokenTaken(sc.domain, newShort, link.ID)
		if err != nil {
			h.serverError(c, "Failed to check short availability", err, "short", newShort)
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "This short token is already taken"})
			return
		}
		patch.Short = &newShort
	}

	updated, err := h.st.UpdateLink(
		store.LinkFilter{Owner: sc.owner, SpaceID: sc.spaceID, Short: short},
		patch,
	)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
			return
		}
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "This short token is already taken"})
			return
		}
		h.serverError(c, "Failed to update link", err, "short", short)
		return
	}
	c.JSON(http.StatusOK, linkToResponse(*updated))
}

// Delete bulk-deletes the owner's links by short token
// @Summary Delete links
// @Accept json
// @Produce json
// @Param request body DeleteRequest true "Tokens to delete"
// @Success 200 {object} map[string]int64
// @Router /delete [post]
func (h *Handler) Delete(c *gin.Context) {
	sc, ok := h.requestScope(c)
	if !ok {
		return
	}

	var req DeleteRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens := req.Selected
	if len(tokens) == 0 && req.Short != "" {
		tokens = []string{req.Short}
	}
	if len(tokens) == 0 {
		c.JSON(http.StatusOK, gin.H{"deleted": 0})
		return
	}

	deleted, err := h.st.DeleteLinks(store.LinkFilter{Owner: sc.owner, SpaceID: sc.spaceID, Shorts: tokens})
	if err != nil {
		h.serverError(c, "Failed to delete links", err, "owner", sc.owner)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// ChangeOwner reassigns every record of the current owner to a new
// identity token and rewrites the identity cookie
// @Summary Change owner token
// @Accept json
// @Produce json
// @Param request body ChangeOwnerRequest true "New owner token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid token"
// @Router /change-owner [post]
func (h *Handler) ChangeOwner(c *gin.Context) {
	owner, ok := identity.GetOwner(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}

	var req ChangeOwnerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := token.Validate(req.NewOwner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NewOwner == owner {
		c.JSON(http.StatusOK, gin.H{"success": true, "reassigned": 0})
		return
	}

	moved, err := h.st.ReassignOwner(owner, req.NewOwner)
	if err != nil {
		h.serverError(c, "Failed to reassign owner", err, "owner", owner)
		return
	}
	identity.SetOwnerCookie(c, h.cfg, req.NewOwner)
	h.log.Info("owner reassigned", "from", owner, "to", req.NewOwner, "records", moved)
	c.JSON(http.StatusOK, gin.H{"success": true, "reassigned": moved})
}

// RegisterRoutes registers link routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.List)
	rg.POST("/shortUrls", h.Create)
	rg.POST("/shortUrls/:short/edit", h.Edit)
	rg.POST("/delete", h.Delete)
	rg.POST("/change-owner", h.ChangeOwner)
}
