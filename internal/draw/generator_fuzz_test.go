package draw

import (
	"strconv"
	"testing"
)

func FuzzGenerate(f *testing.F) {
	f.Add(uint64(0), uint8(2), uint8(1), uint8(0))
	f.Add(uint64(42), uint8(7), uint8(20), uint8(5))
	f.Add(uint64(9), uint8(30), uint8(3), uint8(60))

	f.Fuzz(func(t *testing.T, seed uint64, n, maxAttempts, restrictionCount uint8) {
		size := int(n%40) + 2
		participants := make([]string, size)
		for i := range participants {
			participants[i] = "p" + strconv.Itoa(i)
		}

		rng := NewSeededSource(seed)
		restrictions := make([]Restriction, 0, restrictionCount)
		for range restrictionCount {
			restrictions = append(restrictions, Restriction{
				Giver:     participants[rng.IntN(size)],
				Forbidden: []string{participants[rng.IntN(size)]},
			})
		}

		attempts := int(maxAttempts%25) + 1
		res, err := Generate(participants, restrictions, attempts, NewSeededSource(seed))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		gave := make(map[string]bool, size)
		got := make(map[string]bool, size)
		for _, a := range res.Assignments {
			if a.Giver == a.Receiver {
				t.Fatalf("self-assignment: %q", a.Giver)
			}
			if gave[a.Giver] || got[a.Receiver] {
				t.Fatalf("participant used twice: %+v", a)
			}
			gave[a.Giver] = true
			got[a.Receiver] = true
		}
		if len(gave) != size || len(got) != size {
			t.Fatalf("incomplete draw: %d givers, %d receivers, want %d", len(gave), len(got), size)
		}
		if res.FullyRestrictionsSatisfied && violates(res, restrictions) {
			t.Fatalf("flagged satisfied but violates restrictions")
		}
	})
}
