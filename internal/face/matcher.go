package face

import (
	"go.uber.org/zap"

	"ticketing-service/internal/util"
)

// Matcher decides match/no-match between a live capture and a stored
// reference. Extraction failures of any kind yield no-match rather than an
// error: an inconclusive biometric check must never pass the gate.
type Matcher struct {
	rec       Recognizer
	threshold float64
}

func NewMatcher(rec Recognizer, threshold float64) *Matcher {
	return &Matcher{rec: rec, threshold: threshold}
}

// Match returns whether the two images show the same face, and the measured
// distance (NaN semantics avoided: distance is 0 when extraction failed).
func (m *Matcher) Match(liveImage, referenceImage []byte) (bool, float64) {
	liveDesc, ok, err := m.rec.ExtractDescriptor(liveImage)
	if err != nil || !ok {
		if err != nil {
			util.Warn("Live image descriptor extraction failed", zap.Error(err))
		}
		return false, 0
	}

	refDesc, ok, err := m.rec.ExtractDescriptor(referenceImage)
	if err != nil || !ok {
		if err != nil {
			util.Warn("Reference image descriptor extraction failed", zap.Error(err))
		}
		return false, 0
	}

	distance := m.rec.Distance(liveDesc, refDesc)
	return distance < m.threshold, distance
}

// Threshold exposes the configured decision boundary.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}
