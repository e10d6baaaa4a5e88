// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures an Engine.
type Options struct {
	// FadeInterval is the tick period of the fade scheduler.
	FadeInterval time.Duration
	// DecodeWaitTimeout bounds how long a started voice waits for its bank
	// to decode the first samples it plays.
	DecodeWaitTimeout time.Duration
	// DecodeChunkFrames is the number of frames decoded between progress
	// notifications.
	DecodeChunkFrames int
	// DecodeWorkers limits the banks decoded at the same time.
	DecodeWorkers int64
	// PoolGrace is the time a retired voice stays unused in the pool before
	// it can be handed out again.
	PoolGrace time.Duration

	Logger     *logrus.Logger
	OnFinished FinishedFunc
}

// NewOptions returns the default engine options.
func NewOptions() *Options {
	return &Options{
		FadeInterval:      10 * time.Millisecond,
		DecodeWaitTimeout: 500 * time.Millisecond,
		DecodeChunkFrames: 4096,
		DecodeWorkers:     2,
		PoolGrace:         100 * time.Millisecond,
		Logger:            logrus.StandardLogger(),
	}
}

func (o *Options) normalize() Options {
	def := NewOptions()
	if o == nil {
		return *def
	}

	out := *o
	if out.FadeInterval <= 0 {
		out.FadeInterval = def.FadeInterval
	}
	if out.DecodeWaitTimeout <= 0 {
		out.DecodeWaitTimeout = def.DecodeWaitTimeout
	}
	if out.DecodeChunkFrames <= 0 {
		out.DecodeChunkFrames = def.DecodeChunkFrames
	}
	if out.DecodeWorkers <= 0 {
		out.DecodeWorkers = def.DecodeWorkers
	}
	if out.PoolGrace < 0 {
		out.PoolGrace = 0
	}
	if out.Logger == nil {
		out.Logger = def.Logger
	}
	return out
}
