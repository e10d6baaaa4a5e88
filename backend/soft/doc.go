// SPDX-License-Identifier: EPL-2.0

// Package soft implements backend.Device in pure Go.
//
// Source voices are resampled with cubic interpolation at a step of
// frequencyRatio*sourceRate/deviceRate, honour the loop region of their
// buffer and are summed through their output matrix into a submix or the
// mastering voice. Submixes are summed into the master, whose volume is
// applied last. End of buffer notifications run on a dedicated goroutine.
//
// The mix is produced on demand by Render. A Sink pulls it once the engine
// is started:
//
//	dev, err := soft.New(&soft.Config{
//	    SampleRate: 48000,
//	    Channels:   2,
//	    Sink:       soft.NewNullSink(),
//	})
//
// Effect slots store their parameters but are not rendered.
package soft
