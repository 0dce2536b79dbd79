package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"civreg/internal/citizen/models"
	"civreg/pkg/platform/sentinel"
)

// InMemory keeps records in a map guarded by a mutex. It intentionally
// favors clarity over performance: it backs unit tests and exists so the
// service can run without a database.
type InMemory struct {
	mu       sync.RWMutex
	nextID   int64
	citizens map[int64]models.Citizen
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID:   1,
		citizens: make(map[int64]models.Citizen),
	}
}

func (s *InMemory) FindByID(_ context.Context, id int64) (models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.citizens[id]; ok {
		return c, nil
	}
	return models.Citizen{}, sentinel.ErrNotFound
}

func (s *InMemory) Create(_ context.Context, c models.Citizen) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(c, c.ID); err != nil {
		return 0, err
	}
	c.ID = s.nextID
	s.nextID++
	s.citizens[c.ID] = c
	return c.ID, nil
}

func (s *InMemory) Update(_ context.Context, c models.Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.citizens[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkUnique(c, c.ID); err != nil {
		return err
	}
	s.citizens[c.ID] = c
	return nil
}

func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.citizens[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.citizens, id)
	return nil
}

// Find represents each optional filter as a predicate and folds them with
// logical AND, then applies the paging window over an id-ordered snapshot.
func (s *InMemory) Find(_ context.Context, crit Criteria) ([]models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	preds := predicates(crit)
	matched := make([]models.Citizen, 0)
	for _, c := range s.citizens {
		if matchesAll(c, preds) {
			matched = append(matched, c)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if crit.Page == nil {
		return matched, nil
	}
	skip := crit.Page.offset()
	if skip >= len(matched) {
		return []models.Citizen{}, nil
	}
	matched = matched[skip:]
	if len(matched) > crit.Page.Size {
		matched = matched[:crit.Page.Size]
	}
	return matched, nil
}

func (s *InMemory) CreateBatch(_ context.Context, cs []models.Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch (against stored records and within itself)
	// before inserting anything, so a conflict leaves the store untouched.
	seenSnils := make(map[string]struct{})
	seenInn := make(map[string]struct{})
	for _, c := range cs {
		if err := s.checkUnique(c, 0); err != nil {
			return err
		}
		if c.Snils != "" {
			if _, dup := seenSnils[c.Snils]; dup {
				return sentinel.ErrConflict
			}
			seenSnils[c.Snils] = struct{}{}
		}
		if c.Inn != "" {
			if _, dup := seenInn[c.Inn]; dup {
				return sentinel.ErrConflict
			}
			seenInn[c.Inn] = struct{}{}
		}
	}

	for _, c := range cs {
		c.ID = s.nextID
		s.nextID++
		s.citizens[c.ID] = c
	}
	return nil
}

func (s *InMemory) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.citizens)), nil
}

// checkUnique mirrors the database's unique indexes on snils and inn.
// selfID exempts the record being updated from matching itself.
func (s *InMemory) checkUnique(c models.Citizen, selfID int64) error {
	for id, existing := range s.citizens {
		if id == selfID {
			continue
		}
		if c.Snils != "" && existing.Snils == c.Snils {
			return sentinel.ErrConflict
		}
		if c.Inn != "" && existing.Inn == c.Inn {
			return sentinel.ErrConflict
		}
	}
	return nil
}

type predicate func(models.Citizen) bool

func predicates(crit Criteria) []predicate {
	var preds []predicate
	if crit.FullNamePrefix != "" {
		prefix := crit.FullNamePrefix
		preds = append(preds, func(c models.Citizen) bool { return strings.HasPrefix(c.FullName, prefix) })
	}
	if crit.SnilsPrefix != "" {
		prefix := crit.SnilsPrefix
		preds = append(preds, func(c models.Citizen) bool { return strings.HasPrefix(c.Snils, prefix) })
	}
	if crit.InnPrefix != "" {
		prefix := crit.InnPrefix
		preds = append(preds, func(c models.Citizen) bool { return strings.HasPrefix(c.Inn, prefix) })
	}
	if crit.BirthDate != nil {
		want := *crit.BirthDate
		preds = append(preds, func(c models.Citizen) bool { return c.BirthDate.Equal(want) })
	}
	if crit.DeathDate != nil {
		want := *crit.DeathDate
		preds = append(preds, func(c models.Citizen) bool { return c.DeathDate != nil && c.DeathDate.Equal(want) })
	}
	return preds
}

func matchesAll(c models.Citizen, preds []predicate) bool {
	for _, p := range preds {
		if !p(c) {
			return false
		}
	}
	return true
}
