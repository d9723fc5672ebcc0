// Package store defines the record-store contract shared by the
// primary (gorm/sqlite) backend and the degraded file-backed fallback,
// and selects between them once at process start.
package store

import (
	"errors"

	"github.com/linkspace/linkspace/pkg/linkspace/models"
)

var (
	// ErrNotFound signals that no record matched the filter.
	ErrNotFound = errors.New("record not found")
	// ErrConflict signals a uniqueness violation (short token, alias,
	// or space name).
	ErrConflict = errors.New("conflicting record exists")
	// ErrSpacesUnsupported is returned by space operations on backends
	// without a workspace concept (the file-backed fallback).
	ErrSpacesUnsupported = errors.New("backend does not support spaces")
)

// LinkFilter narrows link queries. Zero-valued fields are
// unconstrained. Alias matches records whose alias list contains the
// token; Shorts matches any of the listed short tokens.
type LinkFilter struct {
	Owner   string
	Domain  string
	SpaceID string
	Short   string
	Alias   string
	Full    string
	Shorts  []string
}

// LinkPatch describes a partial link update. Nil fields are untouched.
type LinkPatch struct {
	Full  *string
	Short *string
	Alias *[]string
	Owner *string
}

// SpaceFilter narrows space queries. Zero-valued fields are
// unconstrained.
type SpaceFilter struct {
	ID    string
	Owner string
	Name  string
}

// SpacePatch describes a partial space update. Nil fields are
// untouched.
type SpacePatch struct {
	Name   *string
	Domain *string
}

// Store is the record-store contract. Both backends implement it;
// handlers program against it and never branch on backend identity.
type Store interface {
	FindLinks(f LinkFilter) ([]models.Link, error)
	CreateLink(l *models.Link) error
	UpdateLink(f LinkFilter, p LinkPatch) (*models.Link, error)
	DeleteLinks(f LinkFilter) (int64, error)
	IncrementClicks(token, domain string) (*models.Link, error)
	ReassignOwner(oldOwner, newOwner string) (int64, error)

	// SupportsSpaces reports whether the backend has a workspace
	// concept. When false the space methods return
	// ErrSpacesUnsupported and callers must special-case that mode.
	SupportsSpaces() bool
	FindSpace(f SpaceFilter) (*models.Space, error)
	// FindSpaces returns the owner's spaces ordered by creation time,
	// earliest first.
	FindSpaces(owner string) ([]models.Space, error)
	CreateSpace(s *models.Space) error
	UpdateSpace(id, owner string, p SpacePatch) (*models.Space, error)
	// DeleteSpace removes the space and cascades to its links,
	// returning how many links were removed.
	DeleteSpace(id, owner string) (int64, error)

	Ping() error
}
