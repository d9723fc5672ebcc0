package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/linkspace/linkspace/pkg/linkspace/models"
)

// fileStore is the degraded fallback backend: one JSON file, rewritten
// whole on every mutation. An in-process mutex serializes access;
// multi-process safety is explicitly not provided. It has no workspace
// concept, so every owner effectively has a single unscoped workspace.
type fileStore struct {
	mu   sync.Mutex
	path string
}

// OpenFile opens (creating if needed) the file-backed fallback store.
func OpenFile(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &fileStore{path: path}, nil
}

func (s *fileStore) load() ([]models.Link, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var links []models.Link
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *fileStore) save(links []models.Link) error {
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func matches(l *models.Link, f LinkFilter) bool {
	if f.Owner != "" && l.Owner != f.Owner {
		return false
	}
	if f.Domain != "" && l.Domain != f.Domain {
		return false
	}
	if f.SpaceID != "" && l.SpaceID != f.SpaceID {
		return false
	}
	if f.Short != "" && l.Short != f.Short {
		return false
	}
	if f.Alias != "" && !l.HasAlias(f.Alias) {
		return false
	}
	if f.Full != "" && l.Full != f.Full {
		return false
	}
	if len(f.Shorts) > 0 {
		found := false
		for _, sh := range f.Shorts {
			if l.Short == sh {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *fileStore) FindLinks(f LinkFilter) ([]models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []models.Link
	for i := range links {
		if matches(&links[i], f) {
			out = append(out, links[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fileStore) CreateLink(l *models.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := s.load()
	if err != nil {
		return err
	}
	var maxID uint
	for i := range links {
		if links[i].ID > maxID {
			maxID = links[i].ID
		}
	}
	now := time.Now()
	l.ID = maxID + 1
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Alias == nil {
		l.Alias = []string{}
	}
	links = append(links, *l)
	return s.save(links)
}

func (s *fileStore) UpdateLink(f LinkFilter, p LinkPatch) (*models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range links {
		if !matches(&links[i], f) {
			continue
		}
		if p.Full != nil {
			links[i].Full = *p.Full
		}
		if p.Short != nil {
			links[i].Short = *p.Short
		}
		if p.Alias != nil {
			links[i].Alias = *p.Alias
		}
		if p.Owner != nil {
			links[i].Owner = *p.Owner
		}
		links[i].UpdatedAt = time.Now()
		if err := s.save(links); err != nil {
			return nil, err
		}
		out := links[i]
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *fileStore) DeleteLinks(f LinkFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := s.load()
	if err != nil {
		return 0, err
	}
	kept := links[:0]
	var removed int64
	for i := range links {
		if matches(&links[i], f) {
			removed++
			continue
		}
		kept = append(kept, links[i])
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.save(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// IncrementClicks is a whole-file read-modify-write; concurrent hits
// from separate processes can lose counts, an accepted degradation of
// the fallback backend.
func (s *fileStore) IncrementClicks(token, domain string) (*models.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range links {
		if links[i].Domain != domain || !links[i].Resolves(token) {
			continue
		}
		links[i].Clicks++
		links[i].UpdatedAt = time.Now()
		if err := s.save(links); err != nil {
			return nil, err
		}
		out := links[i]
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *fileStore) ReassignOwner(oldOwner, newOwner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links, err := s.load()
	if err != nil {
		return 0, err
	}
	var moved int64
	for i := range links {
		if links[i].Owner == oldOwner {
			links[i].Owner = newOwner
			moved++
		}
	}
	if moved == 0 {
		return 0, nil
	}
	if err := s.save(links); err != nil {
		return 0, err
	}
	return moved, nil
}

func (s *fileStore) SupportsSpaces() bool { return false }

func (s *fileStore) FindSpace(SpaceFilter) (*models.Space, error) {
	return nil, ErrSpacesUnsupported
}

func (s *fileStore) FindSpaces(string) ([]models.Space, error) {
	return nil, ErrSpacesUnsupported
}

func (s *fileStore) CreateSpace(*models.Space) error {
	return ErrSpacesUnsupported
}

func (s *fileStore) UpdateSpace(string, string, SpacePatch) (*models.Space, error) {
	return nil, ErrSpacesUnsupported
}

func (s *fileStore) DeleteSpace(string, string) (int64, error) {
	return 0, ErrSpacesUnsupported
}

func (s *fileStore) Ping() error {
	_, err := os.Stat(s.path)
	return err
}
