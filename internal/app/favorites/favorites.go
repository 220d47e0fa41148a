// Package favorites persists the set of favorited video IDs.
package favorites

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Key is the slot key the favorites are stored under.
const Key = "vinyl-player-favorites"

// Slot is a persistent key-value store.
type Slot interface {
	// Get returns the stored value. ok is false when the key does not exist.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Set is an insertion-ordered set of video IDs.
type Set struct {
	ids   []string
	index map[string]struct{}
}

// NewSet creates a set from ids, dropping duplicates and empty IDs.
func NewSet(ids ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id is a favorite.
func (s *Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add adds id. It returns false if id was already present.
func (s *Set) Add(id string) bool {
	if id == "" || s.Has(id) {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Remove removes id. It returns false if id was not present.
func (s *Set) Remove(id string) bool {
	if !s.Has(id) {
		return false
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

// Toggle adds id if absent and removes it otherwise.
// It returns true when id is a favorite afterwards.
func (s *Set) Toggle(id string) bool {
	if s.Remove(id) {
		return false
	}
	return s.Add(id)
}

// Len returns the number of favorites.
func (s *Set) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the favorites in insertion order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Repository loads favorites once and saves them after every mutation.
type Repository struct {
	slot Slot
	key  string
}

// NewRepository creates a repository over slot.
func NewRepository(slot Slot) *Repository {
	return &Repository{slot: slot, key: Key}
}

// Load reads the stored favorites. Missing or unreadable data yields an
// empty set; read failures are logged, never returned.
func (r *Repository) Load(ctx context.Context) *Set {
	data, ok, err := r.slot.Get(ctx, r.key)
	if err != nil {
		zlog.Warn().Err(err).Msgf("favorites: failed to read slot: key=%s", r.key)
		return NewSet()
	}
	if !ok || len(data) == 0 {
		return NewSet()
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		zlog.Warn().Err(err).Msgf("favorites: stored value is not a JSON array of IDs, resetting: key=%s", r.key)
		return NewSet()
	}
	zlog.Debug().Msgf("favorites: loaded: count=%d", len(ids))
	return NewSet(ids...)
}

// Save writes the whole set as a JSON array.
func (r *Repository) Save(ctx context.Context, s *Set) error {
	data, err := json.Marshal(s.IDs())
	if err != nil {
		return errors.Wrap(err, "failed to encode favorites")
	}
	if err := r.slot.Set(ctx, r.key, data); err != nil {
		return errors.Wrapf(err, "failed to write favorites: key=%s", r.key)
	}
	return nil
}
