package domain

import (
	"sync"

	m "debugir.dev/pkg/debugir/internal/model"
)

// hashSet remembers the last content hash written to each path.
type hashSet struct {
	mu     sync.Mutex
	hashes map[m.Path]string
}

func newHashSet() *hashSet {
	return &hashSet{hashes: make(map[m.Path]string)}
}

func (s *hashSet) set(path m.Path, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hashes[path] = hash
}

func (s *hashSet) matches(path m.Path, hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hashes[path] == hash
}
