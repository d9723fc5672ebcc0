// Package redirect serves short links: token in, 302 out.
package redirect

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
)

// Handler handles redirect requests
type Handler struct {
	st  store.Store
	cfg *config.Config
	log *slog.Logger
}

// NewHandler creates a new redirect handler
func NewHandler(st store.Store, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{st: st, cfg: cfg, log: log}
}

// servingDomain normalizes the request host to a configured serving
// domain. Unrecognized hosts resolve against the default domain, so a
// proxy or test host still reaches the default space's links.
func (h *Handler) servingDomain(c *gin.Context) string {
	host := strings.ToLower(c.Request.Host)
	if bare, _, err := net.SplitHostPort(host); err == nil {
		host = bare
	}
	if h.cfg.DomainAllowed(host) {
		return host
	}
	return h.cfg.DefaultDomain()
}

// Resolve handles short URL redirects. The token may be a record's
// primary short token or any of its aliases; the click counter is
// incremented exactly once per successful resolution, before the
// redirect is issued.
func (h *Handler) Resolve(c *gin.Context) {
	tok := c.Param("shortUrl")
	domain := h.servingDomain(c)

	link, err := h.st.IncrementClicks(tok, domain)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
			return
		}
		h.log.Error("redirect resolution failed", "token", tok, "domain", domain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve link"})
		return
	}

	c.Redirect(http.StatusFound, link.Full)
}

// RegisterRoutes registers redirect routes on the root router.
// This should be called AFTER all other routes to avoid conflicts.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/:shortUrl", h.Resolve)
}
