package sm2

// Params defines the configurable constants of the SM-2 algorithm.
// The defaults reproduce the canonical SuperMemo-2 behavior and are the
// values the product ships with; they are process-wide constants, not
// mutable state.
type Params struct {
	// MinEaseFactor is the floor for the easiness factor.
	MinEaseFactor float64

	// FirstInterval is the interval in days after the first successful
	// review of an item (and after any failed review).
	FirstInterval float64

	// SecondInterval is the interval in days after the second
	// consecutive successful review.
	SecondInterval float64
}

// NewDefaultParams creates a Params instance with the canonical SM-2
// constants.
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:  1.3,
		FirstInterval:  1.0,
		SecondInterval: 6.0,
	}
}
