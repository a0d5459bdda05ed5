package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionEntry struct {
	session      *Session
	lastAccessed time.Time
}

// sessionCache hands out one shared Session per conversation so that
// concurrent turns on the same session serialize on the same mutex. Least
// recently used entries are evicted once the cache is full.
type sessionCache struct {
	lock     sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
	maxSize  int
}

func newSessionCache(maxSize int) *sessionCache {
	return &sessionCache{
		sessions: make(map[uuid.UUID]*sessionEntry, maxSize),
		maxSize:  maxSize,
	}
}

func (cache *sessionCache) get(sessionID uuid.UUID, build func() *Session) *Session {
	cache.lock.Lock()
	defer cache.lock.Unlock()

	if entry, exists := cache.sessions[sessionID]; exists {
		entry.lastAccessed = time.Now()
		return entry.session
	}

	if len(cache.sessions) >= cache.maxSize {
		oldestSessionID := uuid.Nil
		var oldestTime time.Time
		for id, entry := range cache.sessions {
			if oldestSessionID == uuid.Nil || entry.lastAccessed.Before(oldestTime) {
				oldestSessionID = id
				oldestTime = entry.lastAccessed
			}
		}

		// Wait for an in-flight turn on the evicted session to finish.
		oldest := cache.sessions[oldestSessionID]
		oldest.session.mu.Lock()
		delete(cache.sessions, oldestSessionID)
		oldest.session.mu.Unlock()
	}

	session := build()
	cache.sessions[sessionID] = &sessionEntry{
		session:      session,
		lastAccessed: time.Now(),
	}
	return session
}
