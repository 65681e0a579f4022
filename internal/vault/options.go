package vault

import (
	"io"
	"time"

	"github.com/illarion/passvault/internal/storage"
	"github.com/sirupsen/logrus"
)

// DefaultMaxPadding bounds the random padding added to the index on each save
const DefaultMaxPadding = 10 * 1024

type options struct {
	logger      logrus.FieldLogger
	maxPadding  int
	lockTimeout time.Duration
}

// Option configures Open and Create
type Option func(*options)

// WithLogger sets the logger. The engine never logs names, payloads or keys.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxPadding sets the upper bound of index padding in bytes; 0 disables it
func WithMaxPadding(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPadding = n
		}
	}
}

// WithLockTimeout sets how long to wait for the file lock of a vault held
// by another process
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

func buildOptions(opts []Option) options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	o := options{
		logger:      discard,
		maxPadding:  DefaultMaxPadding,
		lockTimeout: storage.DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
