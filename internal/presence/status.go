package presence

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// StatusStore holds short-lived user status strings ("available", "in
// consultation", ...). Entries expire on their own; an expired status simply
// reads as unset.
type StatusStore struct {
	cache *ttlcache.Cache[string, string]
}

func NewStatusStore(ttl time.Duration) *StatusStore {
	cache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
	)
	go cache.Start()
	return &StatusStore{cache: cache}
}

func (s *StatusStore) Set(userID, status string) {
	s.cache.Set(userID, status, ttlcache.DefaultTTL)
}

func (s *StatusStore) Get(userID string) (string, bool) {
	item := s.cache.Get(userID)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

func (s *StatusStore) Delete(userID string) {
	s.cache.Delete(userID)
}

// Stop halts the background expiry loop.
func (s *StatusStore) Stop() {
	s.cache.Stop()
}
