// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"testing"

	"github.com/ik5/audvox/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReverb_Voice(t *testing.T) {
	te := newTestEngine(t)
	id, src := te.addVoice(t, te.addBank(t))
	slot := int(backend.EffectReverb)

	params := DefaultReverbParameters()
	te.SetReverb(int32(id), params, 0, false)
	assert.True(t, src.EffectEnabled(slot))
	assert.Equal(t, params, src.EffectParameters(slot))

	te.RemoveReverb(int32(id), 0, false)
	assert.False(t, src.EffectEnabled(slot))
}

func TestEq_BusFadeIn(t *testing.T) {
	te := newTestEngine(t)
	bus := te.CreateBus()
	require.NotZero(t, bus)
	node := te.dev.Submixes()[0]
	slot := int(backend.EffectEQ)

	params := DefaultEQParameters()
	params.Gain0 = 4
	params.Gain3 = 0.5

	te.SetEq(int32(bus), params, 0.02, true)
	assert.True(t, node.EffectEnabled(slot))

	start, ok := node.EffectParameters(slot).(EQParameters)
	require.True(t, ok)
	assert.Equal(t, float32(1), start.Gain0, "fades in from a flat response")

	assert.Eventually(t, func() bool {
		return node.EffectParameters(slot) == effectParams(params)
	}, waitFor, tick)
}

func TestEcho_FadeOutDisables(t *testing.T) {
	te := newTestEngine(t)
	id, src := te.addVoice(t, te.addBank(t))
	slot := int(backend.EffectEcho)

	te.SetEcho(int32(id), DefaultEchoParameters(), 0, false)
	require.True(t, src.EffectEnabled(slot))

	te.RemoveEcho(int32(id), 0.02, false)
	assert.True(t, src.EffectEnabled(slot), "still fading")

	assert.Eventually(t, func() bool { return !src.EffectEnabled(slot) }, waitFor, tick)
	last, ok := src.EffectParameters(slot).(EchoParameters)
	require.True(t, ok)
	assert.Zero(t, last.WetDryMix)
}

func TestEffects_ReplaceWhileFading(t *testing.T) {
	te := newTestEngine(t)
	id, src := te.addVoice(t, te.addBank(t))
	slot := int(backend.EffectEcho)

	te.SetEcho(int32(id), DefaultEchoParameters(), 0, false)
	te.RemoveEcho(int32(id), 0.5, false)

	want := EchoParameters{WetDryMix: 0.2, Feedback: 0.1, Delay: 100}
	te.SetEcho(int32(id), want, 0, false)

	assert.Never(t, func() bool { return !src.EffectEnabled(slot) }, 20*tick, tick)
	assert.Equal(t, want, src.EffectParameters(slot))
}

func TestEffects_UnknownTarget(t *testing.T) {
	te := newTestEngine(t)

	te.SetReverb(99, DefaultReverbParameters(), 0, false)
	te.SetEq(99, DefaultEQParameters(), 0, true)
	te.RemoveEcho(99, 0, false)
}

func TestEffectParams_Lanes(t *testing.T) {
	tests := []struct {
		name string
		p    effectParams
	}{
		{"reverb", DefaultReverbParameters()},
		{"eq", DefaultEQParameters()},
		{"echo", DefaultEchoParameters()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lanes := tt.p.lanes()
			assert.Equal(t, tt.p, tt.p.withLanes(lanes))

			silent := tt.p.silent()
			assert.Len(t, silent.lanes(), len(lanes))
		})
	}
}
