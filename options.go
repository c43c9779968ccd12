package eldapo

import "github.com/khalidsaidi/eldapo/filter"

type options struct {
	filterCacheSize int
	logger          *Logger
}

// Option configures a Directory at construction time.
type Option func(*options)

// WithFilterCacheSize overrides the AST cache capacity. A value <= 0 falls
// back to filter.DefaultCacheSize.
func WithFilterCacheSize(n int) Option {
	return func(o *options) { o.filterCacheSize = n }
}

// WithLogger overrides the Directory's logger. A nil logger is ignored.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func defaultOptions() *options {
	return &options{
		filterCacheSize: filter.DefaultCacheSize,
		logger:          NewLogger(nil),
	}
}
