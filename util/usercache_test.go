package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityCache_SetGet(t *testing.T) {
	InitIdentityCache(10)

	id := CachedIdentity{Email: "patient@demo.com", Role: "PATIENT"}
	IdentityCacheSet(1, id)

	got, ok := IdentityCacheGet(1)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = IdentityCacheGet(2)
	assert.False(t, ok)
}

func TestIdentityCache_Overwrite(t *testing.T) {
	InitIdentityCache(10)

	IdentityCacheSet(1, CachedIdentity{Email: "a@demo.com", Role: "PATIENT"})
	IdentityCacheSet(1, CachedIdentity{Email: "a@demo.com", Role: "DOCTOR"})

	got, ok := IdentityCacheGet(1)
	assert.True(t, ok)
	assert.Equal(t, "DOCTOR", got.Role)
}

func TestIdentityCache_EvictsLeastRecentlyUsed(t *testing.T) {
	InitIdentityCache(2)

	IdentityCacheSet(1, CachedIdentity{Email: "one@demo.com", Role: "PATIENT"})
	IdentityCacheSet(2, CachedIdentity{Email: "two@demo.com", Role: "DOCTOR"})

	// Touch 1 so 2 becomes the eviction candidate.
	_, ok := IdentityCacheGet(1)
	assert.True(t, ok)

	IdentityCacheSet(3, CachedIdentity{Email: "three@demo.com", Role: "BANK"})

	_, ok = IdentityCacheGet(2)
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = IdentityCacheGet(1)
	assert.True(t, ok)
	_, ok = IdentityCacheGet(3)
	assert.True(t, ok)
}

func TestIdentityCache_Invalidate(t *testing.T) {
	InitIdentityCache(10)

	IdentityCacheSet(5, CachedIdentity{Email: "x@demo.com", Role: "INSURANCE"})
	IdentityCacheInvalidate(5)

	_, ok := IdentityCacheGet(5)
	assert.False(t, ok)

	// Invalidating an absent entry is a no-op.
	IdentityCacheInvalidate(99)
}

func TestIdentityCache_UninitializedIsSafe(t *testing.T) {
	identityCache = nil

	IdentityCacheSet(1, CachedIdentity{Email: "x@demo.com", Role: "PATIENT"})
	_, ok := IdentityCacheGet(1)
	assert.False(t, ok)
	IdentityCacheInvalidate(1)
}
