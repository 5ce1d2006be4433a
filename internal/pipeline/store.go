package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrStoryNotFound is returned for lookups of unknown story IDs.
var ErrStoryNotFound = errors.New("story not found")

// Store holds story state. Update applies a mutation atomically so
// concurrent stage workers never clobber each other's fields.
type Store interface {
	Put(story *Story) error
	Get(id string) (*Story, error)
	Update(id string, mutate func(*Story) error) (*Story, error)
	List() ([]*Story, error)
}

// MemoryStore is the in-process store. Stories are deep-copied through
// JSON on the way in and out so callers never share mutable state with
// the store.
type MemoryStore struct {
	mu      sync.RWMutex
	stories map[string]*Story
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stories: make(map[string]*Story)}
}

func cloneStory(s *Story) (*Story, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to copy story: %w", err)
	}
	var out Story
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to copy story: %w", err)
	}
	return &out, nil
}

// Put inserts or replaces a story.
func (m *MemoryStore) Put(story *Story) error {
	copied, err := cloneStory(story)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[story.ID] = copied
	return nil
}

// Get returns a copy of the story.
func (m *MemoryStore) Get(id string) (*Story, error) {
	m.mu.RLock()
	story, ok := m.stories[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	return cloneStory(story)
}

// Update applies mutate to the stored story under the write lock and
// returns the updated copy.
func (m *MemoryStore) Update(id string, mutate func(*Story) error) (*Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	story, ok := m.stories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, id)
	}
	working, err := cloneStory(story)
	if err != nil {
		return nil, err
	}
	if err := mutate(working); err != nil {
		return nil, err
	}
	m.stories[id] = working
	return cloneStory(working)
}

// List returns copies of all stories.
func (m *MemoryStore) List() ([]*Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Story, 0, len(m.stories))
	for _, story := range m.stories {
		copied, err := cloneStory(story)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
