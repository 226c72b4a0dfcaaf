package bucketing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserBucketIsStable(t *testing.T) {
	m := NewManager(64)
	userID := uuid.New()

	first := m.UserBucket(userID)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, m.UserBucket(userID))
	}
}

func TestUserBucketInRange(t *testing.T) {
	m := NewManager(16)

	for i := 0; i < 1000; i++ {
		b := m.UserBucket(uuid.New())
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 16)
	}
}

func TestZeroBucketsFallsBackToDefault(t *testing.T) {
	m := NewManager(0)

	b := m.UserBucket(uuid.New())
	assert.GreaterOrEqual(t, b, 0)
	assert.Less(t, b, 64)
}
