package store

import (
	"errors"

	"github.com/linkspace/linkspace/pkg/linkspace/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// gormStore is the primary backend. Single-row updates are atomic at
// the storage layer, which is all the concurrency control this
// subsystem relies on.
type gormStore struct {
	db *gorm.DB
}

// OpenGorm opens the primary backend and runs migrations.
func OpenGorm(dsn string) (Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}
	return &gormStore{db: db}, nil
}

// NewGormStore wraps an existing gorm handle (used by tests).
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// aliasPattern matches the token inside the JSON-serialized alias
// column. Tokens are URL-safe, so a quoted substring match is exact.
func aliasPattern(token string) string {
	return `%"` + token + `"%`
}

func (s *gormStore) linkQuery(f LinkFilter) *gorm.DB {
	q := s.db.Model(&models.Link{})
	if f.Owner != "" {
		q = q.Where("owner = ?", f.Owner)
	}
	if f.Domain != "" {
		q = q.Where("domain = ?", f.Domain)
	}
	if f.SpaceID != "" {
		q = q.Where("space_id = ?", f.SpaceID)
	}
	if f.Short != "" {
		q = q.Where("short = ?", f.Short)
	}
	if f.Alias != "" {
		q = q.Where("alias LIKE ?", aliasPattern(f.Alias))
	}
	if f.Full != "" {
		q = q.Where("\"full\" = ?", f.Full)
	}
	if len(f.Shorts) > 0 {
		q = q.Where("short IN ?", f.Shorts)
	}
	return q
}

func (s *gormStore) FindLinks(f LinkFilter) ([]models.Link, error) {
	var links []models.Link
	if err := s.linkQuery(f).Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (s *gormStore) CreateLink(l *models.Link) error {
	if l.Alias == nil {
		l.Alias = []string{}
	}
	if err := s.db.Create(l).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *gormStore) UpdateLink(f LinkFilter, p LinkPatch) (*models.Link, error) {
	var link models.Link
	if err := s.linkQuery(f).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.Full != nil {
		link.Full = *p.Full
	}
	if p.Short != nil {
		link.Short = *p.Short
	}
	if p.Alias != nil {
		link.Alias = *p.Alias
	}
	if p.Owner != nil {
		link.Owner = *p.Owner
	}
	if err := s.db.Save(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &link, nil
}

func (s *gormStore) DeleteLinks(f LinkFilter) (int64, error) {
	res := s.linkQuery(f).Delete(&models.Link{})
	return res.RowsAffected, res.Error
}

func (s *gormStore) IncrementClicks(token, domain string) (*models.Link, error) {
	var link models.Link
	err := s.db.Where("domain = ?", domain).
		Where("short = ? OR alias LIKE ?", token, aliasPattern(token)).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.db.Model(&link).UpdateColumn("clicks", gorm.Expr("clicks + 1")).Error; err != nil {
		return nil, err
	}
	if err := s.db.First(&link, link.ID).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ReassignOwner moves every link and space from oldOwner to newOwner
// in one transaction. Spaces move with the links: a space left behind
// would strand every link that points at it.
func (s *gormStore) ReassignOwner(oldOwner, newOwner string) (int64, error) {
	var moved int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Link{}).Where("owner = ?", oldOwner).Update("owner", newOwner)
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected
		return tx.Model(&models.Space{}).Where("owner = ?", oldOwner).Update("owner", newOwner).Error
	})
	return moved, err
}

func (s *gormStore) SupportsSpaces() bool { return true }

func (s *gormStore) FindSpace(f SpaceFilter) (*models.Space, error) {
	q := s.db.Model(&models.Space{})
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.Owner != "" {
		q = q.Where("owner = ?", f.Owner)
	}
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	var space models.Space
	if err := q.First(&space).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &space, nil
}

func (s *gormStore) FindSpaces(owner string) ([]models.Space, error) {
	var spaces []models.Space
	err := s.db.Where("owner = ?", owner).Order("created_at ASC").Find(&spaces).Error
	if err != nil {
		return nil, err
	}
	return spaces, nil
}

func (s *gormStore) CreateSpace(sp *models.Space) error {
	if err := s.db.Create(sp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *gormStore) UpdateSpace(id, owner string, p SpacePatch) (*models.Space, error) {
	var space models.Space
	err := s.db.Where("id = ? AND owner = ?", id, owner).First(&space).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.Name != nil {
		space.Name = *p.Name
	}
	if p.Domain != nil {
		space.Domain = *p.Domain
	}
	if err := s.db.Save(&space).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &space, nil
}

func (s *gormStore) DeleteSpace(id, owner string) (int64, error) {
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var space models.Space
		if err := tx.Where("id = ? AND owner = ?", id, owner).First(&space).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		res := tx.Where("space_id = ? AND owner = ?", id, owner).Delete(&models.Link{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&space).Error
	})
	return removed, err
}

func (s *gormStore) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
