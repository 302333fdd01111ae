package session

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Store keeps live sessions in memory. A session is dropped ttl after it was saved,
// the same moment its session token expires.
type Store struct {
	cache *cache.Cache
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{cache: cache.New(ttl, 10*time.Minute)}
}

func (s *Store) Save(sess *Session) {
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
}

func (s *Store) Get(id string) (*Session, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	return x.(*Session), true
}

func (s *Store) Count() int {
	return s.cache.ItemCount()
}
