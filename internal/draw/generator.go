package draw

// DefaultMaxAttempts bounds the random retries before falling back.
const DefaultMaxAttempts = 20

// Restriction forbids Giver from drawing any name in Forbidden.
type Restriction struct {
	Giver     string   `json:"giver"`
	Forbidden []string `json:"forbidden"`
}

type Assignment struct {
	Giver    string `json:"giver"`
	Receiver string `json:"receiver"`
}

// Result is a complete draw. Assignments follow the cycle order of the
// accepted permutation. Attempts counts every permutation drawn, including
// the fallback one.
type Result struct {
	Assignments                []Assignment `json:"assignments"`
	FullyRestrictionsSatisfied bool         `json:"fully_restrictions_satisfied"`
	Attempts                   int          `json:"attempts"`
}

// Generator draws assignments. A Generator holds its RandomSource, so it is
// not safe for concurrent use unless the source is.
type Generator struct {
	maxAttempts int
	rng         RandomSource
}

type Option func(*Generator)

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		g.maxAttempts = n
	}
}

func WithRandomSource(rng RandomSource) Option {
	return func(g *Generator) {
		g.rng = rng
	}
}

// New returns a Generator with DefaultMaxAttempts and a secure random source
// unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = NewSecureSource()
	}
	return g
}

// Generate is shorthand for New(WithMaxAttempts(maxAttempts), WithRandomSource(rng)).Generate.
// A nil rng selects a secure source.
func Generate(participants []string, restrictions []Restriction, maxAttempts int, rng RandomSource) (*Result, error) {
	return New(WithMaxAttempts(maxAttempts), WithRandomSource(rng)).Generate(participants, restrictions)
}

// Generate arranges participants in a random cycle, each giving to the next.
// Up to maxAttempts cycles are tried against restrictions; the first that
// satisfies all of them is returned. Otherwise one more random cycle is
// returned with FullyRestrictionsSatisfied false.
//
// Restrictions naming unknown givers or receivers are ignored. The input
// slices are not modified.
func (g *Generator) Generate(participants []string, restrictions []Restriction) (*Result, error) {
	if err := validate(participants, g.maxAttempts); err != nil {
		return nil, err
	}

	forbidden := indexRestrictions(restrictions)
	perm := make([]string, len(participants))

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		g.shuffleInto(perm, participants)
		if satisfies(perm, forbidden) {
			return &Result{
				Assignments:                cycle(perm),
				FullyRestrictionsSatisfied: true,
				Attempts:                   attempt,
			}, nil
		}
	}

	g.shuffleInto(perm, participants)
	return &Result{
		Assignments:                cycle(perm),
		FullyRestrictionsSatisfied: false,
		Attempts:                   g.maxAttempts + 1,
	}, nil
}

func validate(participants []string, maxAttempts int) error {
	if maxAttempts < 1 {
		return &InvalidInputError{Reason: ReasonMaxAttempts}
	}
	return ValidateParticipants(participants)
}

// ValidateParticipants reports the InvalidInputError Generate would return
// for participants, so callers can reject a list before doing any work.
func ValidateParticipants(participants []string) error {
	if len(participants) < 2 {
		return &InvalidInputError{Reason: ReasonTooFewParticipants}
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p]; dup {
			return &InvalidInputError{Reason: ReasonDuplicate, Participant: p}
		}
		seen[p] = struct{}{}
	}
	return nil
}

// indexRestrictions merges restrictions per giver. Several entries for the
// same giver accumulate.
func indexRestrictions(restrictions []Restriction) map[string]map[string]struct{} {
	idx := make(map[string]map[string]struct{}, len(restrictions))
	for _, r := range restrictions {
		if len(r.Forbidden) == 0 {
			continue
		}
		set, ok := idx[r.Giver]
		if !ok {
			set = make(map[string]struct{}, len(r.Forbidden))
			idx[r.Giver] = set
		}
		for _, f := range r.Forbidden {
			set[f] = struct{}{}
		}
	}
	return idx
}

// shuffleInto copies src into dst and applies a Fisher-Yates shuffle.
func (g *Generator) shuffleInto(dst, src []string) {
	copy(dst, src)
	for i := len(dst) - 1; i > 0; i-- {
		j := g.rng.IntN(i + 1)
		dst[i], dst[j] = dst[j], dst[i]
	}
}

func satisfies(perm []string, forbidden map[string]map[string]struct{}) bool {
	n := len(perm)
	for i, giver := range perm {
		set, ok := forbidden[giver]
		if !ok {
			continue
		}
		if _, bad := set[perm[(i+1)%n]]; bad {
			return false
		}
	}
	return true
}

func cycle(perm []string) []Assignment {
	n := len(perm)
	out := make([]Assignment, n)
	for i, giver := range perm {
		out[i] = Assignment{Giver: giver, Receiver: perm[(i+1)%n]}
	}
	return out
}
