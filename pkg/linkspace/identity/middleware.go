// Package identity resolves the effective owner identity for every
// request on the owner-scoped surface: reconciling the query string,
// the owner cookie, and freshly minted tokens without redirect loops.
package identity

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linkspace/linkspace/pkg/linkspace/config"
	"github.com/linkspace/linkspace/pkg/linkspace/token"
)

const (
	// CookieName is the long-lived identity cookie.
	CookieName = "owner"
	// QueryParam carries the identity in the visible URL so bookmarks
	// and the address bar reflect the real identity.
	QueryParam = "owner"

	contextKey = "linkspace.owner"
)

// Resolver determines the effective owner for each request and keeps
// the cookie and query string in agreement.
type Resolver struct {
	cfg *config.Config
	log *slog.Logger
}

// NewResolver creates an identity resolver.
func NewResolver(cfg *config.Config, log *slog.Logger) *Resolver {
	return &Resolver{cfg: cfg, log: log}
}

// GetOwner returns the resolved owner token. It is always a validated
// token once the resolver has run.
func GetOwner(c *gin.Context) (string, bool) {
	owner, exists := c.Get(contextKey)
	if !exists {
		return "", false
	}
	return owner.(string), true
}

// Middleware resolves the owner identity, by precedence:
//
//  1. valid query token: adopt it, cookie follows the query;
//  2. invalid query token: treat as corruption, fall back to a valid
//     cookie (API requests only) or mint fresh;
//  3. valid cookie: adopt it, mirror it into the URL of plain GETs;
//  4. nothing valid: mint fresh.
//
// API requests (non-GET, or configured API paths) never receive a
// redirect; their identity travels via cookie and context only.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query(QueryParam)
		cookie, _ := c.Cookie(CookieName)
		api := r.isAPIRequest(c)

		switch {
		case q != "" && token.IsValid(q):
			if cookie != q {
				r.setCookie(c, q)
			}
			c.Set(contextKey, q)

		case q != "":
			// A present-but-invalid query token is a corruption
			// signal; the invalid value itself is never adopted.
			if api && token.IsValid(cookie) {
				c.Set(contextKey, cookie)
				break
			}
			fresh := token.NewOwnerToken()
			r.log.Info("minted replacement identity for invalid query token", "path", c.Request.URL.Path)
			r.setCookie(c, fresh)
			c.Set(contextKey, fresh)
			if !api && r.redirectWithOwner(c, fresh) {
				return
			}

		case token.IsValid(cookie):
			c.Set(contextKey, cookie)
			if !api && r.redirectWithOwner(c, cookie) {
				return
			}

		default:
			fresh := token.NewOwnerToken()
			r.setCookie(c, fresh)
			c.Set(contextKey, fresh)
			if !api && r.redirectWithOwner(c, fresh) {
				return
			}
		}

		c.Next()
	}
}

func (r *Resolver) isAPIRequest(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return true
	}
	for _, prefix := range r.cfg.APIPathPrefixes {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			return true
		}
	}
	return false
}

func (r *Resolver) setCookie(c *gin.Context, owner string) {
	SetOwnerCookie(c, r.cfg, owner)
}

// SetOwnerCookie writes the identity cookie: HttpOnly, Path=/, about a
// year long, Secure in production. Handlers that change the identity
// (owner reassignment) use it to keep the cookie in step.
func SetOwnerCookie(c *gin.Context, cfg *config.Config, owner string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, owner, int(cfg.CookieMaxAge.Seconds()), "/", "", cfg.IsProduction(), true)
}

// redirectWithOwner redirects to the current path with owner injected
// into the query string, and reports whether a redirect was issued.
// The redirect is suppressed when the target equals the current
// normalized request URL; that comparison, not a retry limit, is what
// makes a redirect loop structurally impossible.
func (r *Resolver) redirectWithOwner(c *gin.Context, owner string) bool {
	current := normalizedURL(c.Request.URL.Path, c.Request.URL.Query())

	values := c.Request.URL.Query()
	values.Set(QueryParam, owner)
	target := normalizedURL(c.Request.URL.Path, values)

	if target == current {
		return false
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
	return true
}

// normalizedURL renders path+query in a canonical form; Encode sorts
// query keys, so equal URLs compare equal regardless of parameter
// order.
func normalizedURL(path string, values url.Values) string {
	encoded := values.Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}
