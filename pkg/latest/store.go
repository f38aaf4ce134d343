// Package latest holds the most recent reading for the query layer.
package latest

import (
	"sync"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
)

type Store struct {
	mu      sync.RWMutex
	reading types.PlantReading
	has     bool
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored reading as a whole.
func (s *Store) Set(r types.PlantReading) {
	s.mu.Lock()
	s.reading = r
	s.has = true
	s.mu.Unlock()
}

// Get returns a copy of the latest reading. ok is false until the first Set.
func (s *Store) Get() (types.PlantReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reading, s.has
}
