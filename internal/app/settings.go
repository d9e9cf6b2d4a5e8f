package app

import (
	"sync"

	"yashubustudio/recommender/recommender"
)

// settingsStore persists UI preferences back to config.json. It edits the file
// settings only, so environment overrides stay out of the saved file.
type settingsStore struct {
	mu   sync.Mutex
	path string
	file recommender.Config
}

func newSettingsStore(path string, file recommender.Config) *settingsStore {
	return &settingsStore{path: path, file: file.Clone()}
}

// SaveTopK stores k as the default number of suggestions. Unchanged values are not
// written.
func (s *settingsStore) SaveTopK(k int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.file.Clone()
	next.TopK = recommender.ClampTopK(k)
	if next.TopK == s.file.TopK {
		return nil
	}
	if err := recommender.SaveConfig(s.path, next); err != nil {
		return err
	}
	s.file = next
	return nil
}
