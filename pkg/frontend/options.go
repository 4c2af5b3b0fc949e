package frontend

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/herlein/godtv/pkg/avl6381"
	"github.com/herlein/godtv/pkg/i2c"
	"github.com/herlein/godtv/pkg/mxl603"
)

type options struct {
	name  string
	log   logr.Logger
	sleep func(time.Duration)

	newDemod func(i2c.Bus, ...avl6381.Option) Demodulator
	newTuner func(i2c.Bus, ...mxl603.Option) (Tuner, error)
}

// Option configures Attach
type Option func(*options)

// WithName labels the frontend in logs and metrics, usually by serial
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSleep replaces time.Sleep for every chip driver
func WithSleep(fn func(time.Duration)) Option {
	return func(o *options) { o.sleep = fn }
}
