package memory

import (
	"context"
	"sync"
	"time"

	"json4ai/internal/models"
)

type counter struct {
	count     int
	periodEnd time.Time
}

type UsageStore struct {
	keys *keyedMutex

	mu       sync.RWMutex
	counters map[string]counter
}

func NewUsageStore() *UsageStore {
	return &UsageStore{
		keys:     newKeyedMutex(),
		counters: make(map[string]counter),
	}
}

func usageKey(userID, period string) string {
	return userID + "|" + period
}

func (s *UsageStore) Reserve(_ context.Context, userID, period string, limit int, periodEnd time.Time) (int, bool, error) {
	key := usageKey(userID, period)
	unlock := s.keys.Lock(key)
	defer unlock()

	s.mu.RLock()
	current := s.counters[key]
	s.mu.RUnlock()

	if current.count >= limit {
		return current.count, false, nil
	}
	current.count++
	current.periodEnd = periodEnd

	s.mu.Lock()
	s.counters[key] = current
	s.mu.Unlock()
	return current.count, true, nil
}

func (s *UsageStore) Get(_ context.Context, userID, period string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[usageKey(userID, period)].count, nil
}

func (s *UsageStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, c := range s.counters {
		if c.periodEnd.Before(cutoff) {
			delete(s.counters, key)
			deleted++
		}
	}
	return deleted, nil
}

type EntitlementStore struct {
	mu     sync.Mutex
	events map[string]models.EntitlementEvent
}

func NewEntitlementStore() *EntitlementStore {
	return &EntitlementStore{events: make(map[string]models.EntitlementEvent)}
}

func (s *EntitlementStore) Exists(_ context.Context, reference string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.events[reference]
	return ok, nil
}

func (s *EntitlementStore) Record(_ context.Context, event models.EntitlementEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.Reference]; ok {
		return false, nil
	}
	s.events[event.Reference] = event
	return true, nil
}
