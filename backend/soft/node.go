// SPDX-License-Identifier: EPL-2.0

package soft

import (
	"github.com/ik5/audvox/backend"
)

// node is a mix graph vertex: the mastering voice, a submix or the shared
// part of a source voice. Every field is guarded by the device mutex.
type node struct {
	dev      *Device
	channels int
	volume   float32
	dest     *node
	// matrix routes channels into dest, laid out as
	// matrix[dst*channels+src]. nil selects the default routing.
	matrix []float32

	effects []backend.EffectKind
	enabled []bool
	params  []any

	mix       []float32
	destroyed bool
}

func newNode(d *Device, channels int, dest *node, effects []backend.EffectKind) *node {
	return &node{
		dev:      d,
		channels: channels,
		volume:   1,
		dest:     dest,
		effects:  append([]backend.EffectKind(nil), effects...),
		enabled:  make([]bool, len(effects)),
		params:   make([]any, len(effects)),
	}
}

func (n *node) SetVolume(volume float32) error {
	n.dev.mtx.Lock()
	defer n.dev.mtx.Unlock()

	if n.destroyed {
		return backend.ErrVoiceDestroyed
	}
	n.volume = max(volume, 0)
	return nil
}

func (n *node) Volume() float32 {
	n.dev.mtx.Lock()
	defer n.dev.mtx.Unlock()

	return n.volume
}

func (n *node) SetOutputMatrix(srcChannels, dstChannels int, matrix []float32) error {
	n.dev.mtx.Lock()
	defer n.dev.mtx.Unlock()

	if n.destroyed {
		return backend.ErrVoiceDestroyed
	}
	if n.dest == nil || srcChannels != n.channels || dstChannels != n.dest.channels ||
		len(matrix) != srcChannels*dstChannels {
		return backend.ErrInvalidMatrix
	}
	n.matrix = append(n.matrix[:0], matrix...)
	return nil
}

func (n *node) InputChannels() int { return n.channels }

func (n *node) EnableEffect(slot int) error  { return n.setEnabled(slot, true) }
func (n *node) DisableEffect(slot int) error { return n.setEnabled(slot, false) }

func (n *node) setEnabled(slot int, on bool) error {
	n.dev.mtx.Lock()
	defer n.dev.mtx.Unlock()

	if slot < 0 || slot >= len(n.effects) {
		return backend.ErrInvalidSlot
	}
	n.enabled[slot] = on
	return nil
}

// SetEffectParameters stores params for slot. Effects are not rendered.
func (n *node) SetEffectParameters(slot int, params any) error {
	n.dev.mtx.Lock()
	defer n.dev.mtx.Unlock()

	if slot < 0 || slot >= len(n.effects) {
		return backend.ErrInvalidSlot
	}
	n.params[slot] = params
	return nil
}

// EffectState reports whether slot is enabled and its last parameters.
func (n *node) EffectState(slot int) (bool, any) {
	n.dev.mtx.Lock()
	defer n.dev.mtx.Unlock()

	if slot < 0 || slot >= len(n.effects) {
		return false, nil
	}
	return n.enabled[slot], n.params[slot]
}

func (n *node) Destroy() {
	n.dev.mtx.Lock()
	n.destroyed = true
	n.dev.mtx.Unlock()

	n.dev.forget(n)
}

// prepare sizes and clears the accumulation buffer.
func (n *node) prepare(frames int) []float32 {
	size := frames * n.channels
	if cap(n.mix) < size {
		n.mix = make([]float32, size)
	}
	n.mix = n.mix[:size]
	clear(n.mix)
	return n.mix
}

// mixInto adds frames of src, scaled by gain, into dst through matrix.
// Without a matrix destination channel d receives source channel d modulo
// the source channel count.
func mixInto(dst []float32, dstChannels int, src []float32, srcChannels, frames int, gain float32, matrix []float32) {
	if gain == 0 {
		return
	}

	for f := range frames {
		in := src[f*srcChannels : (f+1)*srcChannels]
		out := dst[f*dstChannels : (f+1)*dstChannels]

		if matrix == nil {
			for d := range out {
				out[d] += in[d%srcChannels] * gain
			}
			continue
		}

		for d := range out {
			var acc float32
			row := matrix[d*srcChannels : (d+1)*srcChannels]
			for s, v := range in {
				acc += v * row[s]
			}
			out[d] += acc * gain
		}
	}
}
