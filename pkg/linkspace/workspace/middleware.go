// Package workspace resolves the active space for the request's owner,
// creating a default space on first contact. It only acts on backends
// with a workspace concept; in fallback mode every owner has a single
// implicit unscoped workspace and the resolver is a pass-through.
package workspace

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/identity"
	"github.com/linkspace/linkspace/pkg/linkspace/models"
	"github.com/linkspace/linkspace/pkg/linkspace/store"
)

const (
	// CookieName remembers the owner's active space between requests.
	CookieName = "activeSpace"
	// QueryParam selects a space for a single request.
	QueryParam = "space"

	// DefaultSpaceName is the name of the implicitly created space.
	DefaultSpaceName = "Default"

	contextKey = "linkspace.space"
)

// Resolver determines the active space for each request.
type Resolver struct {
	st  store.Store
	cfg *config.Config
	log *slog.Logger
}

// NewResolver creates a workspace resolver.
func NewResolver(st store.Store, cfg *config.Config, log *slog.Logger) *Resolver {
	return &Resolver{st: st, cfg: cfg, log: log}
}

// GetSpace returns the resolved space. It is absent in fallback mode.
func GetSpace(c *gin.Context) (*models.Space, bool) {
	v, exists := c.Get(contextKey)
	if !exists {
		return nil, false
	}
	return v.(*models.Space), true
}

// Middleware resolves the active space, after the identity resolver
// has run. A candidate id is taken from the query string, then the
// form body, then the cookie; it is adopted only when it parses as a
// UUID and names a space belonging to the resolved owner, so
// cross-owner adoption is structurally impossible. Otherwise the
// owner's earliest-created space is used, created as "Default" on the
// first allowed domain when the owner has none.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.st.SupportsSpaces() {
			c.Next()
			return
		}

		owner, ok := identity.GetOwner(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
			c.Abort()
			return
		}

		space, err := r.resolve(c, owner)
		if err != nil {
			r.log.Error("workspace resolution failed", "owner", owner, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve workspace"})
			c.Abort()
			return
		}

		if cookie, _ := c.Cookie(CookieName); cookie != space.ID {
			r.setCookie(c, space.ID)
		}
		c.Set(contextKey, space)
		c.Next()
	}
}

func (r *Resolver) resolve(c *gin.Context, owner string) (*models.Space, error) {
	if candidate := r.candidate(c); candidate != "" {
		if _, err := uuid.Parse(candidate); err == nil {
			space, err := r.st.FindSpace(store.SpaceFilter{ID: candidate, Owner: owner})
			if err == nil {
				return space, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		}
	}

	spaces, err := r.st.FindSpaces(owner)
	if err != nil {
		return nil, err
	}
	if len(spaces) > 0 {
		return &spaces[0], nil
	}

	space := &models.Space{
		Name:   DefaultSpaceName,
		Domain: r.cfg.DefaultDomain(),
		Owner:  owner,
	}
	if err := r.st.CreateSpace(space); err != nil {
		return nil, err
	}
	r.log.Info("created default space", "owner", owner, "space", space.ID)
	return space, nil
}

func (r *Resolver) candidate(c *gin.Context) string {
	if v := c.Query(QueryParam); v != "" {
		return v
	}
	if c.Request.Method != http.MethodGet {
		if v := c.PostForm(QueryParam); v != "" {
			return v
		}
	}
	cookie, _ := c.Cookie(CookieName)
	return cookie
}

func (r *Resolver) setCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, id, int(r.cfg.CookieMaxAge.Seconds()), "/", "", r.cfg.IsProduction(), true)
}
