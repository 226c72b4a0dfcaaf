package face

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubRecognizer returns canned extraction results and a fixed distance.
type stubRecognizer struct {
	ok       bool
	err      error
	distance float64
	calls    int
}

func (s *stubRecognizer) ExtractDescriptor(image []byte) (Descriptor, bool, error) {
	s.calls++
	return Descriptor{}, s.ok, s.err
}

func (s *stubRecognizer) Distance(a, b Descriptor) float64 { return s.distance }

func (s *stubRecognizer) Close() {}

func TestMatchBelowThreshold(t *testing.T) {
	rec := &stubRecognizer{ok: true, distance: 0.59}
	m := NewMatcher(rec, 0.6)

	matched, distance := m.Match([]byte("live"), []byte("ref"))
	assert.True(t, matched)
	assert.Equal(t, 0.59, distance)
}

func TestMatchAtThresholdFails(t *testing.T) {
	rec := &stubRecognizer{ok: true, distance: 0.6}
	m := NewMatcher(rec, 0.6)

	matched, _ := m.Match([]byte("live"), []byte("ref"))
	assert.False(t, matched)
}

func TestNoDetectableFaceFailsClosed(t *testing.T) {
	rec := &stubRecognizer{ok: false}
	m := NewMatcher(rec, 0.6)

	matched, distance := m.Match([]byte("live"), []byte("ref"))
	assert.False(t, matched)
	assert.Zero(t, distance)
}

func TestExtractionErrorFailsClosed(t *testing.T) {
	rec := &stubRecognizer{err: errors.New("bad jpeg")}
	m := NewMatcher(rec, 0.6)

	matched, _ := m.Match([]byte("live"), []byte("ref"))
	assert.False(t, matched)
	// Reference image is never touched once the live capture fails.
	assert.Equal(t, 1, rec.calls)
}
