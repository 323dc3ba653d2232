package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxRuns bounds the number of retained runs. When full, the oldest
// finished run is evicted; running runs are never evicted.
func WithMaxRuns(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxRuns = n
		}
	}
}

// WithOnEvict registers fn to be called with the ID of every evicted run,
// after the store lock is released.
func WithOnEvict(fn func(runID string)) Option {
	return func(s *MemoryStore) {
		s.onEvict = fn
	}
}
