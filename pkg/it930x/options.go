package it930x

import (
	"time"

	"github.com/go-logr/logr"
)

type options struct {
	log       logr.Logger
	sleep     func(time.Duration)
	chunkSize int
	progress  func(done, total int)
}

func defaultOptions() options {
	return options{
		log:       logr.Discard(),
		sleep:     time.Sleep,
		chunkSize: DefaultChunkSize,
	}
}

// Option configures a Framer, Bridge or firmware load
type Option func(*options)

// WithLogger sets the logger
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithSleep replaces time.Sleep for settle delays
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// WithChunkSize sets the legacy firmware chunk ceiling
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithProgress registers a callback invoked after every firmware push
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
