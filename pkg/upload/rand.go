package upload

import "math/rand"

// defaultRandomFloat returns a pseudo-random float in [0, 1); split out as a
// var so tests can make backoff deterministic.
func defaultRandomFloat() float64 {
	return rand.Float64()
}
