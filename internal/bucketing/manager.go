package bucketing

import (
	"hash"
	"sync"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// Manager assigns users to a fixed number of buckets so the Scylla users
// table gets a bounded partition key instead of one row per partition.
type Manager struct {
	userBuckets int
	hasherPool  sync.Pool
}

func NewManager(userBuckets int) *Manager {
	if userBuckets <= 0 {
		userBuckets = 64
	}
	m := &Manager{userBuckets: userBuckets}
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}
	return m
}

// UserBucket returns a stable bucket in [0, userBuckets) for the user id.
func (m *Manager) UserBucket(userID uuid.UUID) int {
	return m.bucket(userID.String())
}

// KeyBucket returns a stable bucket for an arbitrary lookup key, used for
// the email uniqueness table.
func (m *Manager) KeyBucket(key string) int {
	return m.bucket(key)
}

func (m *Manager) bucket(s string) int {
	h := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(h)

	h.Reset()
	_, _ = h.Write([]byte(s))

	return int(h.Sum64() % uint64(m.userBuckets))
}
