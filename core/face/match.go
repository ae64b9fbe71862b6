package face

import "math"

// Match is the nearest known identity for a probe descriptor.
type Match struct {
	StudentID string
	Distance  float64
}

// EuclideanDistance computes the distance between two descriptors.
// Descriptors of differing lengths never match.
func EuclideanDistance(a, b Descriptor) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Match finds the stored encoding globally nearest to the probe and accepts it
// only when its distance is strictly below threshold. On a tie the first
// encountered minimum wins (store iteration order is stable). Returns nil when
// no stored descriptor is within threshold.
func (s *Store) Match(probe Descriptor, threshold float64) *Match {
	if s == nil || len(s.encodings) == 0 {
		return nil
	}

	best := -1
	bestDist := math.MaxFloat64
	for i, enc := range s.encodings {
		if d := EuclideanDistance(probe, enc.Descriptor); d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 || bestDist >= threshold {
		return nil
	}
	return &Match{StudentID: s.encodings[best].StudentID, Distance: bestDist}
}
