package iot

import (
	"fmt"
	"sync"
	"time"

	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
	"liyu1981.xyz/relay-sync-service/pkg/schedule"
)

// PriceStore holds the latest two-day price array pushed by the feed.
type PriceStore struct {
	mu        sync.RWMutex
	points    []models.PricePoint
	updatedAt time.Time
}

func NewPriceStore() *PriceStore {
	return &PriceStore{}
}

func (s *PriceStore) Set(points []models.PricePoint, at time.Time) error {
	if len(points) != models.PriceArrayLen {
		return fmt.Errorf("%w: expected %d price points, got %d", common.ErrValidation, models.PriceArrayLen, len(points))
	}
	copied := make([]models.PricePoint, len(points))
	copy(copied, points)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = copied
	s.updatedAt = at
	return nil
}

func (s *PriceStore) Get() ([]models.PricePoint, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]models.PricePoint, len(s.points))
	copy(copied, s.points)
	return copied, s.updatedAt
}

// Day returns the 96 quarter-hour prices of the UTC day containing now.
// Points are placed by their timestamp; when none fall on that day the first
// 96 entries are used, the feed always puts today first. Missing slots are 0.
func (s *PriceStore) Day(now time.Time) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := make([]float64, models.SlotsPerDay)
	y, m, d := now.UTC().Date()
	matched := false
	for _, p := range s.points {
		py, pm, pd := p.Time.UTC().Date()
		if py == y && pm == m && pd == d {
			day[schedule.SlotOf(p.Time)] = p.Price
			matched = true
		}
	}
	if matched {
		return day
	}
	for i := 0; i < models.SlotsPerDay && i < len(s.points); i++ {
		day[i] = s.points[i].Price
	}
	return day
}
