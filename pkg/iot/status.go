package iot

import (
	"sort"
	"sync"

	"liyu1981.xyz/relay-sync-service/pkg/models"
)

// StatusStore is the in-memory runtime view of every device, keyed by id.
type StatusStore struct {
	mu      sync.RWMutex
	entries map[string]*models.DeviceStatus
}

func NewStatusStore() *StatusStore {
	return &StatusStore{entries: make(map[string]*models.DeviceStatus)}
}

func (s *StatusStore) Get(deviceID string) (models.DeviceStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[deviceID]
	if !ok {
		return models.DeviceStatus{DeviceID: deviceID}, false
	}
	return *st, true
}

// Update applies fn to the entry of deviceID, creating it on first contact,
// and returns a copy of the result.
func (s *StatusStore) Update(deviceID string, fn func(st *models.DeviceStatus)) models.DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entries[deviceID]
	if !ok {
		st = &models.DeviceStatus{DeviceID: deviceID}
		s.entries[deviceID] = st
	}
	fn(st)
	return *st
}

func (s *StatusStore) Delete(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, deviceID)
}

func (s *StatusStore) All() []models.DeviceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DeviceStatus, 0, len(s.entries))
	for _, st := range s.entries {
		out = append(out, *st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].DeviceID < out[b].DeviceID })
	return out
}

func boolPtr(v bool) *bool {
	return &v
}
