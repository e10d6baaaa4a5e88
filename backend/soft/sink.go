// SPDX-License-Identifier: EPL-2.0

package soft

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPeriod is the amount of audio a Clock renders per tick.
const DefaultPeriod = 10 * time.Millisecond

// Renderer produces interleaved float32 frames of the device mix.
type Renderer interface {
	Render(dst []float32)
	OutputChannels() int
	SampleRate() int
}

// Sink consumes the mix of a started device.
type Sink interface {
	Start(r Renderer) error
	Stop() error
	Close() error
}

// Clock pulls one period of audio from a Renderer per tick, in real time,
// and hands it to write. It is the base of sinks that do not own an audio
// device clock.
type Clock struct {
	period time.Duration
	write  func([]float32) error

	mtx   sync.Mutex
	group *errgroup.Group
	stop  chan struct{}
}

// NewClock creates a clock. A nil write discards the rendered audio.
func NewClock(period time.Duration, write func([]float32) error) *Clock {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Clock{period: period, write: write}
}

func (c *Clock) Start(r Renderer) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.group != nil {
		return nil
	}

	frames := int(int64(r.SampleRate()) * int64(c.period) / int64(time.Second))
	if frames <= 0 {
		return errors.New("clock period shorter than one frame")
	}

	stop := make(chan struct{})
	g := new(errgroup.Group)
	g.Go(func() error {
		buf := make([]float32, frames*r.OutputChannels())
		ticker := time.NewTicker(c.period)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return nil
			case <-ticker.C:
			}

			r.Render(buf)
			if c.write == nil {
				continue
			}
			if err := c.write(buf); err != nil {
				return err
			}
		}
	})

	c.group = g
	c.stop = stop
	return nil
}

// Stop halts the clock and returns the first write error.
func (c *Clock) Stop() error {
	c.mtx.Lock()
	g, stop := c.group, c.stop
	c.group, c.stop = nil, nil
	c.mtx.Unlock()

	if g == nil {
		return nil
	}
	close(stop)
	return g.Wait()
}

func (c *Clock) Close() error {
	return c.Stop()
}

// NewNullSink returns a sink that renders in real time and discards the
// result. Voices advance and finish as they would on a sound card.
func NewNullSink() Sink {
	return NewClock(DefaultPeriod, nil)
}
