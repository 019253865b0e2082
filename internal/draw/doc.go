// Package draw assigns gift receivers to givers ("lootjes trekken").
//
// Every participant gives exactly one gift and receives exactly one, nobody
// draws themselves, and per-giver restrictions ("Alice must not draw Bob")
// are honored when a random cyclic arrangement satisfying them turns up
// within a bounded number of attempts. When none does, the generator still
// returns a valid arrangement and reports that restrictions were dropped.
//
// The package is pure: no I/O, no globals. Randomness comes from an injected
// RandomSource, so a seeded source reproduces a draw exactly.
package draw
