// Package synth serializes access to go-randomdata's package level
// source. CustomRand rebinds a single global generator, so concurrent
// generators seeded independently must not interleave their draws.
package synth

import (
	"math/rand"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

var mu sync.Mutex

// Bind points go-randomdata at r and locks out other binders until the
// returned release func is called. Callers hold the lock for the full
// draw sequence so a seeded source always produces the same values:
//
//	defer synth.Bind(g.rng)()
func Bind(r *rand.Rand) func() {
	mu.Lock()
	randomdata.CustomRand(r)
	return mu.Unlock
}
