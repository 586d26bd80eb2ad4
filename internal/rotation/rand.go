package rotation

import "time"

// randSeed seeds the adapter's PRNG. Selection order has no correctness
// requirement (spec.md only requires picks to respect cooldowns and
// intervals), so a wall-clock seed is sufficient.
func randSeed() int64 {
	return time.Now().UnixNano()
}
