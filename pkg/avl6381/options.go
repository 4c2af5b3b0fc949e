package avl6381

import (
	"time"

	"github.com/go-logr/logr"
)

type options struct {
	log   logr.Logger
	sleep func(time.Duration)
	addr  uint8
	patch []byte
}

// Option configures a Demod
type Option func(*options)

// WithLogger sets the logger
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSleep replaces time.Sleep, mainly for tests
func WithSleep(fn func(time.Duration)) Option {
	return func(o *options) { o.sleep = fn }
}

// WithAddress overrides DefaultAddress
func WithAddress(addr uint8) Option {
	return func(o *options) { o.addr = addr }
}

// WithPatch supplies the micro-patch blob loaded by Configure
func WithPatch(blob []byte) Option {
	return func(o *options) { o.patch = blob }
}
