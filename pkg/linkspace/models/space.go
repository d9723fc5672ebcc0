package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Space is a named bucket of links bound to exactly one serving domain.
// A space belongs to a single owner and space names are unique per owner.
type Space struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"not null;uniqueIndex:idx_space_name_owner" json:"name"`
	Owner     string    `gorm:"not null;uniqueIndex:idx_space_name_owner;index" json:"owner"`
	Domain    string    `gorm:"not null" json:"domain"`
}

// BeforeCreate assigns a UUID identifier when none was supplied.
func (s *Space) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
