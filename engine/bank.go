// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"sync"
	"time"
)

// Bank holds the decoded PCM of one loaded sound. It is shared read only by
// every voice playing it and implements backend.PCM.
type Bank struct {
	id BankID

	mtx        sync.RWMutex
	data       []float32
	channels   int
	sampleRate int
	total      int
	decoded    int
	decoding   bool
	removed    bool
	autoRemove bool
	users      int
	progress   chan struct{}

	onDecoded DecodedFunc
	notified  bool
}

func newBank(id BankID, onDecoded DecodedFunc) *Bank {
	return &Bank{
		id:        id,
		onDecoded: onDecoded,
		progress:  make(chan struct{}),
	}
}

// ID of the bank.
func (b *Bank) ID() BankID { return b.id }

// Channels per frame. Zero until decoding started.
func (b *Bank) Channels() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return b.channels
}

// SampleRate of the decoded data in Hz.
func (b *Bank) SampleRate() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return b.sampleRate
}

// Frames is the total frame count, corrected down when the stream turned
// out shorter than announced.
func (b *Bank) Frames() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return b.total
}

// Decoded is the number of frames decoded so far.
func (b *Bank) Decoded() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return b.decoded
}

// Decoding reports whether the decode task is still running.
func (b *Bank) Decoding() bool {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return b.decoding
}

// ReadFrames copies frames starting at frame into dst.
func (b *Bank) ReadFrames(dst []float32, frame int) int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	if b.channels == 0 || frame < 0 || frame >= b.total {
		return 0
	}

	n := min(len(dst)/b.channels, b.total-frame)
	if b.data == nil {
		clear(dst[:n*b.channels])
		return n
	}
	copy(dst[:n*b.channels], b.data[frame*b.channels:])
	return n
}

func (b *Bank) ready() bool {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return b.channels > 0 && !b.removed
}

// prepare allocates the sample buffer once the stream metadata is known.
func (b *Bank) prepare(channels, sampleRate, frames int) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.channels = channels
	b.sampleRate = sampleRate
	b.total = frames
	b.decoded = 0
	b.data = make([]float32, frames*channels)
	b.decoding = true
}

// appendFrames stores decoded samples and wakes every waiter. It returns
// true once the decode task has to stop.
func (b *Bank) appendFrames(samples []float32) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.removed {
		return true
	}

	frames := min(len(samples)/b.channels, b.total-b.decoded)
	copy(b.data[b.decoded*b.channels:], samples[:frames*b.channels])
	b.decoded += frames
	b.signal()

	return b.decoded >= b.total
}

// finishDecode closes the decode task. It reports whether the stream was
// truncated and whether the caller has to fire the decoded notification.
func (b *Bank) finishDecode() (truncated, notify bool) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.decoded < b.total {
		b.total = b.decoded
		truncated = true
	}
	b.decoding = false
	b.signal()
	b.releaseLocked()

	notify = !b.notified
	b.notified = true
	return truncated, notify
}

// signal must be called with the write lock held.
func (b *Bank) signal() {
	close(b.progress)
	b.progress = make(chan struct{})
}

// waitDecoded blocks until more than frame frames are decoded, decoding
// stopped, the timeout elapsed or ctx ended.
func (b *Bank) waitDecoded(ctx context.Context, frame int, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mtx.RLock()
		decoded, decoding, removed, progress := b.decoded, b.decoding, b.removed, b.progress
		b.mtx.RUnlock()

		if decoded > frame {
			return true
		}
		if !decoding || removed {
			return false
		}

		select {
		case <-progress:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (b *Bank) attach() {
	b.mtx.Lock()
	b.users++
	b.mtx.Unlock()
}

// detach drops a voice reference and reports whether the bank became idle
// with auto removal requested.
func (b *Bank) detach() bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.users > 0 {
		b.users--
	}
	b.releaseLocked()

	return b.users == 0 && b.autoRemove && !b.removed
}

func (b *Bank) setAutoRemove() {
	b.mtx.Lock()
	b.autoRemove = true
	b.mtx.Unlock()
}

// markRemoved detaches the bank from the registry. The buffer is freed now
// or once the decode task and the last voice let go of it.
func (b *Bank) markRemoved() {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.removed = true
	b.signal()
	b.releaseLocked()
}

func (b *Bank) released() bool {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	return b.removed && b.data == nil
}

func (b *Bank) releaseLocked() {
	if b.removed && !b.decoding && b.users == 0 {
		b.data = nil
	}
}
