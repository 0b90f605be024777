package dedupe

// Option applies a configuration option to the deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many request ids are remembered.
// If maxSize > 0 the oldest id is forgotten once the window is full.
// If maxSize <= 0 every id is kept for the life of the process.
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
