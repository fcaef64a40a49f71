package util

import (
	"container/list"
	"sync"
)

// CachedIdentity is the per-user data the auth middleware needs on every
// request: enough to stamp the request context and the audit log without a
// users-table query.
type CachedIdentity struct {
	Email string
	Role  string
}

type identityEntry struct {
	userID   uint
	identity CachedIdentity
}

// LRU cache for userID -> identity
type identityLRU struct {
	mu       sync.Mutex
	ll       *list.List
	cache    map[uint]*list.Element
	capacity int
}

var identityCache *identityLRU

// InitIdentityCache initializes the LRU cache with given capacity.
// If capacity <= 0, a default of 1000 is used.
func InitIdentityCache(capacity int) {
	if capacity <= 0 {
		capacity = 1000
	}
	identityCache = &identityLRU{
		ll:       list.New(),
		cache:    make(map[uint]*list.Element),
		capacity: capacity,
	}
}

// IdentityCacheGet returns the cached identity and true if present.
func IdentityCacheGet(userID uint) (CachedIdentity, bool) {
	if identityCache == nil {
		return CachedIdentity{}, false
	}
	identityCache.mu.Lock()
	defer identityCache.mu.Unlock()
	if ele, ok := identityCache.cache[userID]; ok {
		identityCache.ll.MoveToFront(ele)
		if e, ok := ele.Value.(identityEntry); ok {
			return e.identity, true
		}
	}
	return CachedIdentity{}, false
}

// IdentityCacheSet stores the identity for a userID, evicting the least
// recently used entry when over capacity.
func IdentityCacheSet(userID uint, identity CachedIdentity) {
	if identityCache == nil {
		return
	}
	identityCache.mu.Lock()
	defer identityCache.mu.Unlock()

	if ele, ok := identityCache.cache[userID]; ok {
		identityCache.ll.MoveToFront(ele)
		ele.Value = identityEntry{userID: userID, identity: identity}
		return
	}

	ele := identityCache.ll.PushFront(identityEntry{userID: userID, identity: identity})
	identityCache.cache[userID] = ele

	if identityCache.ll.Len() > identityCache.capacity {
		oldest := identityCache.ll.Back()
		if oldest != nil {
			identityCache.ll.Remove(oldest)
			if e, ok := oldest.Value.(identityEntry); ok {
				delete(identityCache.cache, e.userID)
			}
		}
	}
}

// IdentityCacheInvalidate drops a user's cached identity, e.g. after a role
// change through profile completion.
func IdentityCacheInvalidate(userID uint) {
	if identityCache == nil {
		return
	}
	identityCache.mu.Lock()
	defer identityCache.mu.Unlock()
	if ele, ok := identityCache.cache[userID]; ok {
		identityCache.ll.Remove(ele)
		delete(identityCache.cache, userID)
	}
}
